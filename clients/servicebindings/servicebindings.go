package servicebindings

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/validator.v2"

	"github.com/sap/cloudfoundry-client-go/cloudfoundry"
)

const (
	resourcePath = "service_credential_bindings"
	detailsPath  = "details"
	paramsPath   = "parameters"

	errInvalidRequest         = "invalid %s"
	errMissingServiceInstance = "relationships.service_instance is required"
	errMissingApp             = "relationships.app is required for bindings of type app"
	errUnexpectedAppForKey    = "relationships.app must not be set for bindings of type key"
	errUnsupportedBindingType = "unsupported binding type %q"
)

// ServiceBindingsV3 are the operations on service credential bindings.
type ServiceBindingsV3 interface {
	Create(ctx context.Context, request CreateServiceBindingRequest) (*CreateServiceBindingResponse, error)
	Delete(ctx context.Context, request DeleteServiceBindingRequest) (string, error)
	Get(ctx context.Context, request GetServiceBindingRequest) (*GetServiceBindingResponse, error)
	GetDetails(ctx context.Context, request GetServiceBindingDetailsRequest) (*GetServiceBindingDetailsResponse, error)
	GetParameters(ctx context.Context, request GetServiceBindingParametersRequest) (*GetServiceBindingParametersResponse, error)
	List(ctx context.Context, request ListServiceBindingsRequest) (*ListServiceBindingsResponse, error)
	Update(ctx context.Context, request UpdateServiceBindingRequest) (*UpdateServiceBindingResponse, error)
}

var _ ServiceBindingsV3 = &Client{}

// Client maps each operation onto the shared request pipeline.
type Client struct {
	operations *cloudfoundry.Operations
}

// NewClient creates a Client on top of operations.
func NewClient(operations *cloudfoundry.Operations) *Client {
	return &Client{operations: operations}
}

// Create creates a binding. Bindings of managed service instances are created asynchronously, the
// response then holds the job id and no binding.
func (c *Client) Create(ctx context.Context, request CreateServiceBindingRequest) (*CreateServiceBindingResponse, error) {
	if err := validateCreate(request); err != nil {
		return nil, err
	}

	binding := &ServiceBindingResource{}
	resp, err := c.operations.PostWithResponse(ctx, request, binding, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	result := &CreateServiceBindingResponse{JobID: cloudfoundry.ExtractJobID(resp)}
	if resp.Decoded {
		result.ServiceBinding = binding
	}
	return result, nil
}

// Delete deletes a binding and returns the id of the deleting job, "" if it was deleted synchronously.
func (c *Client) Delete(ctx context.Context, request DeleteServiceBindingRequest) (string, error) {
	if err := validate("DeleteServiceBindingRequest", request); err != nil {
		return "", err
	}
	jobID, err := c.operations.Delete(ctx, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath, request.ServiceBindingID)
	})
	return jobID, errors.WithStack(err)
}

// Get reads a binding.
func (c *Client) Get(ctx context.Context, request GetServiceBindingRequest) (*GetServiceBindingResponse, error) {
	if err := validate("GetServiceBindingRequest", request); err != nil {
		return nil, err
	}
	out := &GetServiceBindingResponse{}
	if err := c.operations.Get(ctx, request, out, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath, request.ServiceBindingID)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// GetDetails reads the credentials of a binding.
func (c *Client) GetDetails(ctx context.Context, request GetServiceBindingDetailsRequest) (*GetServiceBindingDetailsResponse, error) {
	if err := validate("GetServiceBindingDetailsRequest", request); err != nil {
		return nil, err
	}
	out := &GetServiceBindingDetailsResponse{}
	if err := c.operations.Get(ctx, request, out, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath, request.ServiceBindingID, detailsPath)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// GetParameters reads the parameters of a binding.
func (c *Client) GetParameters(ctx context.Context, request GetServiceBindingParametersRequest) (*GetServiceBindingParametersResponse, error) {
	if err := validate("GetServiceBindingParametersRequest", request); err != nil {
		return nil, err
	}
	parameters := map[string]any{}
	if err := c.operations.Get(ctx, request, &parameters, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath, request.ServiceBindingID, paramsPath)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return &GetServiceBindingParametersResponse{Parameters: parameters}, nil
}

// List reads one page of bindings.
func (c *Client) List(ctx context.Context, request ListServiceBindingsRequest) (*ListServiceBindingsResponse, error) {
	out := &ListServiceBindingsResponse{}
	if err := c.operations.Get(ctx, request, out, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// Update updates the metadata of a binding.
func (c *Client) Update(ctx context.Context, request UpdateServiceBindingRequest) (*UpdateServiceBindingResponse, error) {
	if err := validate("UpdateServiceBindingRequest", request); err != nil {
		return nil, err
	}
	out := &UpdateServiceBindingResponse{}
	if err := c.operations.Patch(ctx, request, out, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment(resourcePath, request.ServiceBindingID)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

func validate(name string, request any) error {
	if err := validator.Validate(request); err != nil {
		return errors.Wrapf(err, errInvalidRequest, name)
	}
	return nil
}

func validateCreate(request CreateServiceBindingRequest) error {
	if err := validate("CreateServiceBindingRequest", request); err != nil {
		return err
	}
	if request.Relationships.ServiceInstance.GUID() == "" {
		return errors.Wrapf(errors.New(errMissingServiceInstance), errInvalidRequest, "CreateServiceBindingRequest")
	}
	switch request.Type {
	case ServiceBindingTypeApp:
		if request.Relationships.App.GUID() == "" {
			return errors.Wrapf(errors.New(errMissingApp), errInvalidRequest, "CreateServiceBindingRequest")
		}
	case ServiceBindingTypeKey:
		if request.Relationships.App != nil {
			return errors.Wrapf(errors.New(errUnexpectedAppForKey), errInvalidRequest, "CreateServiceBindingRequest")
		}
	default:
		return errors.Wrapf(errors.Errorf(errUnsupportedBindingType, request.Type), errInvalidRequest, "CreateServiceBindingRequest")
	}
	return nil
}
