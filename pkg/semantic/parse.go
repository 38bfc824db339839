package semantic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrUnparseable is returned when a response holds no usable verdict object.
var ErrUnparseable = errors.New("response could not parse")

// Response is the verdict the reasoning service returns.
type Response struct {
	Pass      bool     `json:"pass"`
	Failures  []string `json:"failures"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// Parser turns raw reasoning text into a Response.
type Parser func(text string) (Response, error)

var responseSchema = gojsonschema.NewGoLoader(map[string]any{
	"type":     "object",
	"required": []any{"pass"},
	"properties": map[string]any{
		"pass": map[string]any{"type": "boolean"},
		"failures": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"reasoning": map[string]any{"type": "string"},
	},
})

// ParseResponse extracts the first well-formed JSON object from text and
// validates it against the verdict schema. Surrounding prose and code fences
// are tolerated.
func ParseResponse(text string) (Response, error) {
	raw, ok := firstObject(text)
	if !ok {
		return Response{}, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}

	result, err := gojsonschema.Validate(responseSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}

		return Response{}, fmt.Errorf("%w: %s", ErrUnparseable, strings.Join(reasons, "; "))
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	return normalizeResponse(resp), nil
}

// normalizeResponse keeps Failures empty exactly when Pass is true.
func normalizeResponse(resp Response) Response {
	if resp.Pass {
		resp.Failures = []string{}

		return resp
	}

	failures := make([]string, 0, len(resp.Failures))

	for _, f := range resp.Failures {
		if f = strings.TrimSpace(f); f != "" {
			failures = append(failures, f)
		}
	}

	if len(failures) == 0 {
		failures = append(failures, "rule failed without a stated reason")
	}

	resp.Failures = failures

	return resp
}

func firstObject(text string) ([]byte, bool) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[i:]))

		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}

		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}

		i += next + 1
	}

	return nil, false
}
