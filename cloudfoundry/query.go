package cloudfoundry

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Timestamp filter operators.
const (
	TimestampLessThan           = "lt"
	TimestampLessThanOrEqual    = "lte"
	TimestampGreaterThan        = "gt"
	TimestampGreaterThanOrEqual = "gte"
)

// QueryParametersProvider is implemented by requests that contribute query parameters.
type QueryParametersProvider interface {
	QueryParameters() url.Values
}

// TimestampFilter filters on created_ats / updated_ats. Without operator the values are matched exactly.
type TimestampFilter struct {
	Operator string
	Values   []string
}

// PaginatedRequest holds the paging parameters shared by all list requests.
type PaginatedRequest struct {
	Page    *int   `json:"page,omitempty"`
	PerPage *int   `json:"per_page,omitempty"`
	OrderBy string `json:"order_by,omitempty"`
}

// Apply adds the paging parameters to q.
func (p PaginatedRequest) Apply(q *QueryBuilder) *QueryBuilder {
	return q.IntParam("page", p.Page).
		IntParam("per_page", p.PerPage).
		Param("order_by", p.OrderBy)
}

// QueryBuilder collects query parameters, empty values are skipped.
type QueryBuilder struct {
	values url.Values
}

// NewQueryBuilder creates an empty QueryBuilder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{values: url.Values{}}
}

// Filter adds a comma separated list filter.
func (q *QueryBuilder) Filter(name string, values []string) *QueryBuilder {
	values = lo.Filter(values, func(v string, _ int) bool {
		return strings.TrimSpace(v) != ""
	})
	if len(values) > 0 {
		q.values.Set(name, strings.Join(values, ","))
	}
	return q
}

// Param adds a single valued parameter.
func (q *QueryBuilder) Param(name string, value string) *QueryBuilder {
	if strings.TrimSpace(value) != "" {
		q.values.Set(name, value)
	}
	return q
}

// IntParam adds an integer parameter when value is set.
func (q *QueryBuilder) IntParam(name string, value *int) *QueryBuilder {
	if value != nil {
		q.values.Set(name, strconv.Itoa(*value))
	}
	return q
}

// Timestamps adds a created_ats / updated_ats style filter.
func (q *QueryBuilder) Timestamps(name string, filter *TimestampFilter) *QueryBuilder {
	if filter == nil {
		return q
	}
	if filter.Operator != "" {
		name = name + "[" + filter.Operator + "]"
	}
	return q.Filter(name, filter.Values)
}

// Values returns the collected parameters.
func (q *QueryBuilder) Values() url.Values {
	return q.values
}
