package main

import (
	"bytes"
	stdjson "encoding/json"
	"io"

	"github.com/jmespath-community/go-jmespath"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"

	errInvalidQuery = "invalid query %q"
	errRenderOutput = "cannot render output"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (c *cli) print(v any) error {
	return render(c.out, c.flags.output, c.flags.query, v)
}

// render writes v as json or yaml. The value goes through its json form first, so both formats
// use the API field names and the query sees the same document.
func render(out io.Writer, format, query string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errRenderOutput)
	}
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return errors.Wrap(err, errRenderOutput)
	}

	if query != "" {
		if document, err = jmespath.Search(query, document); err != nil {
			return errors.Wrapf(err, errInvalidQuery, query)
		}
	}

	if format == outputYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(document); err != nil {
			return errors.Wrap(err, errRenderOutput)
		}
		return errors.Wrap(enc.Close(), errRenderOutput)
	}

	// jsoniter mis-indents nested maps, so indentation is left to encoding/json.
	compact, err := json.Marshal(document)
	if err != nil {
		return errors.Wrap(err, errRenderOutput)
	}
	formatted := &bytes.Buffer{}
	if err := stdjson.Indent(formatted, compact, "", "  "); err != nil {
		return errors.Wrap(err, errRenderOutput)
	}
	formatted.WriteByte('\n')
	_, err = formatted.WriteTo(out)
	return errors.Wrap(err, errRenderOutput)
}
