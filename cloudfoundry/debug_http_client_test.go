package cloudfoundry

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sap/cloudfoundry-client-go/internal/testutils"
)

func TestRedactSensitiveBodyBasedOnKeywords(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "Plain body", body: `{"name":"binding"}`, want: `{"name":"binding"}`},
		{name: "Credentials", body: `{"credentials":{"user":"x"}}`, want: "<BODY REDACTED>"},
		{name: "Upper case keyword", body: `{"PASSWORD":"x"}`, want: "<BODY REDACTED>"},
		{name: "Spaced key", body: `{"client_secret" : "x"}`, want: "<BODY REDACTED>"},
		{name: "Token response", body: `{"access_token":"x","token_type":"bearer"}`, want: "<BODY REDACTED>"},
		{name: "Token form", body: `grant_type=password&username=u&password=p`, want: "<BODY REDACTED>"},
		{name: "Client secret form", body: `grant_type=client_credentials&client_secret=s`, want: "<BODY REDACTED>"},
		{
			name: "Binding links",
			body: `{"guid":"abc","name":"x","links":{"self":{"href":"https://api.example.com/v3/service_credential_bindings/abc"}}}`,
			want: `{"guid":"abc","name":"x","links":{"self":{"href":"https://api.example.com/v3/service_credential_bindings/abc"}}}`,
		},
		{name: "Keyword as value", body: `{"type":"password"}`, want: `{"type":"password"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(redactSensitiveBodyBasedOnKeywords([]byte(tt.body))))
		})
	}
}

func TestRedactJwtTokensFromBody(t *testing.T) {
	jwt := testutils.JwtToken(testutils.Now, testutils.ExpiresAt(0))
	got := redactJwtTokensFromBody([]byte(`{"jwt":"` + jwt + `"}`))
	assert.Equal(t, `{"jwt":"<REDACTED>"}`, string(got))
}

func TestRedactSensitiveHeaders(t *testing.T) {
	header := http.Header{}
	header.Set("Authorization", "bearer abc")
	header.Set("Set-Cookie", "session=1")
	header.Set("Accept", "application/json")

	got := redactSensitiveHeaders(header)
	assert.Equal(t, "<REDACTED>", got.Get("Authorization"))
	assert.Equal(t, "<REDACTED>", got.Get("Set-Cookie"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "bearer abc", header.Get("Authorization"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestRoundTripDebugger(t *testing.T) {
	var lines []string
	log := logging.NewLogrLogger(funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1}))

	var sentBody string
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		sentBody = string(b)
		return &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"credentials":{"password":"secret"}}`)),
		}, nil
	})

	client := DebugPrintHTTPClient(log, WithHttpClient(&http.Client{Transport: base}))
	req, err := http.NewRequest(http.MethodPost, "https://api.example.com/v3/service_credential_bindings", strings.NewReader(`{"type":"key"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "bearer abc")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"type":"key"}`, sentBody, "request body must reach the server")
	assert.Equal(t, `{"credentials":{"password":"secret"}}`, string(body), "response body must reach the caller")

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "<BODY REDACTED>")
	assert.Contains(t, lines[0], `{\"type\":\"key\"}`)
	assert.NotContains(t, lines[0], "bearer abc")
	assert.NotContains(t, lines[0], "secret\"}")
}
