package cloudfoundry

import (
	"time"

	"github.com/cloudfoundry/go-cfclient/v3/resource"
)

// Link is a hyperlink advertised by the API.
type Link struct {
	Href   string `json:"href"`
	Method string `json:"method,omitempty"`
}

// Metadata holds labels and annotations of a resource. A nil value removes the key on update.
type Metadata = resource.Metadata

// RelationshipData references a related resource by guid.
type RelationshipData struct {
	GUID string `json:"guid" validate:"nonzero"`
}

// Relationship is a to-one relationship.
type Relationship struct {
	Data *RelationshipData `json:"data"`
}

// ToOne creates a Relationship pointing at guid.
func ToOne(guid string) Relationship {
	return Relationship{Data: &RelationshipData{GUID: guid}}
}

// GUID returns the referenced guid or "" for an empty relationship.
func (r *Relationship) GUID() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.GUID
}

// Pagination describes one page of a list response.
type Pagination struct {
	TotalResults int   `json:"total_results"`
	TotalPages   int   `json:"total_pages"`
	First        *Link `json:"first,omitempty"`
	Last         *Link `json:"last,omitempty"`
	Next         *Link `json:"next,omitempty"`
	Previous     *Link `json:"previous,omitempty"`
}

// Resource holds the fields common to all v3 resources.
type Resource struct {
	GUID      string           `json:"guid"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Links     map[string]*Link `json:"links,omitempty"`
}
