package cloudfoundry

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCheckResponse(t *testing.T) {
	type want struct {
		err error
	}
	cases := map[string]struct {
		reason string
		resp   *http.Response
		want   want
	}{
		"Success": {
			reason: "2xx responses are no errors",
			resp:   response(http.StatusAccepted, ""),
			want:   want{},
		},
		"V3ErrorDocument": {
			reason: "Error documents are mapped to ClientV3Error",
			resp:   response(http.StatusNotFound, `{"errors":[{"code":10010,"title":"CF-ResourceNotFound","detail":"Service credential binding not found"}]}`),
			want: want{err: &ClientV3Error{
				StatusCode: http.StatusNotFound,
				Errors:     []Error{{Code: 10010, Title: "CF-ResourceNotFound", Detail: "Service credential binding not found"}},
			}},
		},
		"UnknownPayload": {
			reason: "Anything else is an UnknownCloudFoundryError",
			resp:   response(http.StatusBadGateway, " upstream down \n"),
			want:   want{err: &UnknownCloudFoundryError{StatusCode: http.StatusBadGateway, Payload: "upstream down"}},
		},
		"EmptyErrors": {
			reason: "A json body without errors is not a v3 error document",
			resp:   response(http.StatusInternalServerError, `{"errors":[]}`),
			want:   want{err: &UnknownCloudFoundryError{StatusCode: http.StatusInternalServerError, Payload: `{"errors":[]}`}},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := checkResponse(tc.resp)
			if diff := cmp.Diff(tc.want.err, err); diff != "" {
				t.Errorf("\n%s\ncheckResponse(...): -want error, +got error:\n%s\n", tc.reason, diff)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	v3 := &ClientV3Error{StatusCode: 422, Errors: []Error{
		{Code: 10008, Title: "CF-UnprocessableEntity", Detail: "first"},
		{Code: 130006, Title: "CF-ServiceBindingAppServiceTaken", Detail: "second"},
	}}
	assert.Equal(t, "CF-UnprocessableEntity(10008): first, CF-ServiceBindingAppServiceTaken(130006): second", v3.Error())

	unknown := &UnknownCloudFoundryError{StatusCode: 500, Payload: "boom"}
	assert.Equal(t, "Unknown Cloud Foundry Exception: 500 boom", unknown.Error())
}

func TestErrorHelpers(t *testing.T) {
	notFound := errors.WithStack(errors.Wrap(&ClientV3Error{
		StatusCode: http.StatusNotFound,
		Errors:     []Error{{Code: CodeResourceNotFound}},
	}, "wrapped"))
	unknownNotFound := errors.WithStack(&UnknownCloudFoundryError{StatusCode: http.StatusNotFound})
	taken := &ClientV3Error{StatusCode: 422, Errors: []Error{{Code: CodeUnprocessableEntity}, {Code: CodeServiceBindingAppTaken}}}

	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(unknownNotFound))
	assert.False(t, IsNotFound(taken))
	assert.False(t, IsNotFound(errors.New("plain")))

	assert.True(t, HasErrorCode(notFound, CodeResourceNotFound))
	assert.True(t, HasErrorCode(taken, CodeServiceBindingAppTaken))
	assert.False(t, HasErrorCode(taken, CodeResourceNotFound))
	assert.False(t, HasErrorCode(unknownNotFound, CodeResourceNotFound))

	assert.Equal(t, http.StatusNotFound, StatusCode(notFound))
	assert.Equal(t, 422, StatusCode(taken))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}
