package cloudfoundry

import (
	"net/url"

	"github.com/pkg/errors"
)

const (
	errCouldNotParseCredentials = "error while parsing credentials JSON"
	errMissingUserCredentials   = "username and password are required for the password grant"
	errMissingClientCredentials = "client id and client secret are required for the client_credentials grant"

	grantTypeClientCredentials = "client_credentials"
	grantTypePassword          = "password"

	defaultClientID = "cf"
)

// Credentials used to obtain tokens from UAA.
type Credentials struct {
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	Origin       string `json:"origin,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	GrantType    string `json:"grant_type,omitempty"`
}

// CredentialsFromJSON parses credentials as stored in a credentials file.
func CredentialsFromJSON(data []byte) (Credentials, error) {
	var credentials Credentials
	if err := json.Unmarshal(data, &credentials); err != nil {
		return Credentials{}, errors.Wrap(err, errCouldNotParseCredentials)
	}
	return credentials, nil
}

// Validate checks that the fields required by the selected grant are present.
func (c Credentials) Validate() error {
	if c.isClientCredentialsGrant() {
		if c.ClientID == "" || c.ClientSecret == "" {
			return errors.New(errMissingClientCredentials)
		}
		return nil
	}
	if c.Username == "" || c.Password == "" {
		return errors.New(errMissingUserCredentials)
	}
	return nil
}

func (c Credentials) isClientCredentialsGrant() bool {
	return c.GrantType == grantTypeClientCredentials
}

func (c Credentials) clientID() string {
	if c.ClientID == "" {
		return defaultClientID
	}
	return c.ClientID
}

// authenticationParams returns the extra form values sent to the token endpoint.
func authenticationParams(credentials Credentials) url.Values {
	params := url.Values{}
	if credentials.isClientCredentialsGrant() {
		params.Add("grant_type", grantTypeClientCredentials)
		return params
	}
	params.Add("grant_type", grantTypePassword)
	params.Add("username", credentials.Username)
	params.Add("password", credentials.Password)
	if credentials.Origin != "" {
		hint, _ := json.Marshal(map[string]string{"origin": credentials.Origin})
		params.Add("login_hint", string(hint))
	}
	return params
}
