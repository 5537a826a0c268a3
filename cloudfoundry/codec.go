package cloudfoundry

import (
	jsoniter "github.com/json-iterator/go"
)

const (
	contentTypeJSON = "application/json"

	errEncodeRequest  = "cannot encode request body"
	errDecodeResponse = "cannot decode response body"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary
