package cloudfoundry

import (
	"net/http"
	"testing"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionContext(t *testing.T) {
	tests := []struct {
		name     string
		apiHost  string
		wantHost string
		wantErr  bool
	}{
		{name: "Empty host", apiHost: "  ", wantErr: true},
		{name: "Host without scheme", apiHost: "api.example.com", wantHost: "https://api.example.com"},
		{name: "Trailing slash", apiHost: "http://localhost:8080/", wantHost: "http://localhost:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connection, err := NewConnectionContext(tt.apiHost)
			if tt.wantErr {
				assert.EqualError(t, err, errMissingAPIHost)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, connection.APIHost())
			assert.NotNil(t, connection.RootProvider())
		})
	}
}

func TestConnectionOptions(t *testing.T) {
	connection, err := NewConnectionContext("api.example.com", WithTimeout(5*time.Second), WithSkipSSLValidation(true))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, connection.HTTPClient().Timeout)
	transport, ok := connection.HTTPClient().Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)

	custom := &http.Client{}
	connection, err = NewConnectionContext("api.example.com", WithHTTPClient(custom), WithDebug(true), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	assert.Same(t, custom, connection.HTTPClient())
	_, ok = connection.HTTPClient().Transport.(*RoundTripDebugger)
	assert.True(t, ok)
}
