package store

import (
	"bytes"
	"encoding/json"
)

var emptyList = []byte("[]")

// Result is the parsed body of a store answer. An empty body is normalised to an empty list.
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

func newResult(status int, body []byte) Result {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = emptyList
	}
	return Result{StatusCode: status, Body: body}
}

// Decode unmarshals the body into v.
func (r Result) Decode(v any) error {
	body := r.Body
	if len(body) == 0 {
		body = emptyList
	}
	return json.Unmarshal(body, v)
}

// Len counts rows when the body is a list, 1 for an object, 0 otherwise.
func (r Result) Len() int {
	switch {
	case len(r.Body) == 0:
		return 0
	case r.Body[0] == '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(r.Body, &rows); err != nil {
			return 0
		}
		return len(rows)
	case r.Body[0] == '{':
		return 1
	default:
		return 0
	}
}

// Empty reports whether the store returned no rows.
func (r Result) Empty() bool {
	return r.Len() == 0
}
