package servicebindings

import (
	"net/url"

	"github.com/sap/cloudfoundry-client-go/cloudfoundry"
)

// ServiceBindingType distinguishes app bindings from service keys.
type ServiceBindingType string

const (
	// ServiceBindingTypeApp binds a service instance to an app.
	ServiceBindingTypeApp ServiceBindingType = "app"
	// ServiceBindingTypeKey is a service key, it has no app relationship.
	ServiceBindingTypeKey ServiceBindingType = "key"
)

// Include values of list requests.
const (
	IncludeApp             = "app"
	IncludeServiceInstance = "service_instance"
)

// States of the last operation of a binding.
const (
	LastOperationInitial    = "initial"
	LastOperationInProgress = "in progress"
	LastOperationSucceeded  = "succeeded"
	LastOperationFailed     = "failed"
)

// LastOperation is the state of the latest create or delete operation of a binding.
type LastOperation struct {
	Type        string `json:"type"`
	State       string `json:"state"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// ServiceBindingRelationships links a binding to its service instance and, for app bindings, the app.
type ServiceBindingRelationships struct {
	App             *cloudfoundry.Relationship `json:"app,omitempty"`
	ServiceInstance cloudfoundry.Relationship  `json:"service_instance"`
}

// ServiceBindingResource is a service credential binding as returned by the API.
type ServiceBindingResource struct {
	cloudfoundry.Resource
	Name          *string                     `json:"name"`
	Type          ServiceBindingType          `json:"type"`
	LastOperation *LastOperation              `json:"last_operation,omitempty"`
	Metadata      *cloudfoundry.Metadata      `json:"metadata,omitempty"`
	Relationships ServiceBindingRelationships `json:"relationships"`
}

// CreateServiceBindingRequest is the payload of a create.
type CreateServiceBindingRequest struct {
	Type          ServiceBindingType          `json:"type" validate:"nonzero"`
	Name          *string                     `json:"name,omitempty"`
	Relationships ServiceBindingRelationships `json:"relationships"`
	Parameters    map[string]any              `json:"parameters,omitempty"`
	Metadata      *cloudfoundry.Metadata      `json:"metadata,omitempty"`
}

// CreateServiceBindingResponse carries the binding, if the API created it synchronously, and the
// id of the job creating it otherwise.
type CreateServiceBindingResponse struct {
	ServiceBinding *ServiceBindingResource
	JobID          string
}

// DeleteServiceBindingRequest identifies the binding to delete.
type DeleteServiceBindingRequest struct {
	ServiceBindingID string `validate:"nonzero"`
}

// GetServiceBindingRequest identifies the binding to read.
type GetServiceBindingRequest struct {
	ServiceBindingID string `validate:"nonzero"`
}

// GetServiceBindingResponse is the binding.
type GetServiceBindingResponse = ServiceBindingResource

// GetServiceBindingDetailsRequest identifies the binding whose details are read.
type GetServiceBindingDetailsRequest struct {
	ServiceBindingID string `validate:"nonzero"`
}

// GetServiceBindingDetailsResponse holds the credentials of a binding.
type GetServiceBindingDetailsResponse struct {
	Credentials    map[string]any   `json:"credentials"`
	SyslogDrainURL *string          `json:"syslog_drain_url,omitempty"`
	VolumeMounts   []map[string]any `json:"volume_mounts,omitempty"`
}

// GetServiceBindingParametersRequest identifies the binding whose parameters are read.
type GetServiceBindingParametersRequest struct {
	ServiceBindingID string `validate:"nonzero"`
}

// GetServiceBindingParametersResponse holds the parameters the broker reported for a binding.
type GetServiceBindingParametersResponse struct {
	Parameters map[string]any
}

// ListServiceBindingsRequest filters the bindings to list.
type ListServiceBindingsRequest struct {
	cloudfoundry.PaginatedRequest

	GUIDs                []string
	Names                []string
	Type                 ServiceBindingType
	AppGUIDs             []string
	AppNames             []string
	ServiceInstanceGUIDs []string
	ServiceInstanceNames []string
	ServicePlanGUIDs     []string
	ServicePlanNames     []string
	ServiceOfferingGUIDs []string
	ServiceOfferingNames []string
	LabelSelector        string
	Include              []string
	CreatedAts           *cloudfoundry.TimestampFilter
	UpdatedAts           *cloudfoundry.TimestampFilter
}

var _ cloudfoundry.QueryParametersProvider = ListServiceBindingsRequest{}

// QueryParameters maps the request onto the query of the list endpoint.
func (r ListServiceBindingsRequest) QueryParameters() url.Values {
	q := cloudfoundry.NewQueryBuilder()
	r.PaginatedRequest.Apply(q)
	return q.
		Filter("guids", r.GUIDs).
		Filter("names", r.Names).
		Param("type", string(r.Type)).
		Filter("app_guids", r.AppGUIDs).
		Filter("app_names", r.AppNames).
		Filter("service_instance_guids", r.ServiceInstanceGUIDs).
		Filter("service_instance_names", r.ServiceInstanceNames).
		Filter("service_plan_guids", r.ServicePlanGUIDs).
		Filter("service_plan_names", r.ServicePlanNames).
		Filter("service_offering_guids", r.ServiceOfferingGUIDs).
		Filter("service_offering_names", r.ServiceOfferingNames).
		Param("label_selector", r.LabelSelector).
		Filter("include", r.Include).
		Timestamps("created_ats", r.CreatedAts).
		Timestamps("updated_ats", r.UpdatedAts).
		Values()
}

// IncludedResources holds the resources requested with include.
type IncludedResources struct {
	Apps             []map[string]any `json:"apps,omitempty"`
	ServiceInstances []map[string]any `json:"service_instances,omitempty"`
}

// ListServiceBindingsResponse is one page of bindings.
type ListServiceBindingsResponse struct {
	Pagination cloudfoundry.Pagination  `json:"pagination"`
	Resources  []ServiceBindingResource `json:"resources"`
	Included   *IncludedResources       `json:"included,omitempty"`
}

// UpdateServiceBindingRequest updates the metadata of a binding.
type UpdateServiceBindingRequest struct {
	ServiceBindingID string                 `json:"-" validate:"nonzero"`
	Metadata         *cloudfoundry.Metadata `json:"metadata,omitempty"`
}

// UpdateServiceBindingResponse is the updated binding.
type UpdateServiceBindingResponse = ServiceBindingResource
