package internal

import (
	"strings"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

const (
	errParseParameters = "parameters are neither valid json nor yaml"
	errMergeParameters = "cannot merge parameters"
	errParseKeyValue   = "expected key=value, got %q"
)

func Ptr[T any](v T) *T {
	return &v
}

func Val[VAL any, PTR *VAL](ptr PTR) VAL {
	if ptr == nil {
		val := new(VAL)
		return *val
	} else {
		return *ptr
	}
}

// UnmarshalRawParameters parses json or yaml into a map. Empty input yields an empty map.
func UnmarshalRawParameters(raw []byte) (map[string]any, error) {
	parameters := map[string]any{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return parameters, nil
	}
	// yaml is a superset of json, so one path covers both
	if err := yaml.Unmarshal(raw, &parameters); err != nil {
		return nil, errors.Wrap(err, errParseParameters)
	}
	return parameters, nil
}

// MergeParameters merges the documents in order, later documents override earlier keys.
func MergeParameters(documents ...map[string]any) (map[string]any, error) {
	merged := map[string]any{}
	for _, doc := range documents {
		if err := mergo.Merge(&merged, doc, mergo.WithOverride); err != nil {
			return nil, errors.Wrap(err, errMergeParameters)
		}
	}
	return merged, nil
}

// ParseKeyValues turns ["a=b", "c="] into {"a": "b", "c": nil}. An empty value removes a label
// or annotation when sent in a metadata update.
func ParseKeyValues(pairs []string) (map[string]*string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]*string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf(errParseKeyValue, pair)
		}
		if value == "" {
			out[key] = nil
		} else {
			out[key] = Ptr(value)
		}
	}
	return out, nil
}

// CopyMaps helper for copying map contents
func CopyMaps[M1 ~map[K]V, M2 ~map[K]V, K comparable, V any](dst M1, src M2) {
	for k, v := range src {
		dst[k] = v
	}
}
