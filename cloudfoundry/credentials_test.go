package cloudfoundry

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_authenticationParams(t *testing.T) {
	type args struct {
		credentials Credentials
	}

	tests := []struct {
		name string
		args args
		want url.Values
	}{
		{
			name: "Grant Type password",
			args: args{Credentials{Username: "my@mail.com", Password: "mypassword"}},
			want: map[string][]string{
				"username":   {"my@mail.com"},
				"password":   {"mypassword"},
				"grant_type": {"password"},
			},
		},
		{
			name: "Grant Type password with origin",
			args: args{Credentials{Username: "my@mail.com", Password: "mypassword", Origin: "ldap"}},
			want: map[string][]string{
				"username":   {"my@mail.com"},
				"password":   {"mypassword"},
				"grant_type": {"password"},
				"login_hint": {`{"origin":"ldap"}`},
			},
		},
		{
			name: "Grant Type client_credentials",
			args: args{Credentials{ClientID: "myclientid", ClientSecret: "secret", GrantType: "client_credentials"}},
			want: map[string][]string{
				"grant_type": {"client_credentials"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authenticationParams(tt.args.credentials); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("authenticationParams() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name        string
		credentials Credentials
		wantErr     string
	}{
		{name: "Password grant", credentials: Credentials{Username: "u", Password: "p"}},
		{name: "Password grant without password", credentials: Credentials{Username: "u"}, wantErr: errMissingUserCredentials},
		{name: "Client credentials grant", credentials: Credentials{ClientID: "c", ClientSecret: "s", GrantType: grantTypeClientCredentials}},
		{name: "Client credentials grant without secret", credentials: Credentials{ClientID: "c", GrantType: grantTypeClientCredentials}, wantErr: errMissingClientCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.credentials.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestCredentialsFromJSON(t *testing.T) {
	credentials, err := CredentialsFromJSON([]byte(`{"username":"admin","password":"pw","origin":"uaa"}`))
	assert.NoError(t, err)
	assert.Equal(t, Credentials{Username: "admin", Password: "pw", Origin: "uaa"}, credentials)
	assert.Equal(t, defaultClientID, credentials.clientID())

	_, err = CredentialsFromJSON([]byte(`{`))
	assert.ErrorContains(t, err, errCouldNotParseCredentials)
}
