package cmdsock

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one command for the helper. On the wire the action and every
// field share a single flat JSON object.
type Request struct {
	Action string
	Fields map[string]any
}

// NewRequest copies fields so the caller may reuse its map.
func NewRequest(action string, fields map[string]any) Request {
	return Request{Action: action, Fields: maps.Clone(fields)}
}

func (r Request) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		if k == "action" {
			continue
		}
		flat[k] = v
	}
	flat["action"] = r.Action
	return json.Marshal(flat)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	action, ok := flat["action"].(string)
	if !ok || action == "" {
		return errors.New("request has no action")
	}
	delete(flat, "action")
	r.Action = action
	r.Fields = flat
	return nil
}

// Response is the helper's reply. Message carries either the result text
// (sometimes itself a JSON document) or the error description.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Success(message string) Response {
	return Response{Status: StatusSuccess, Message: message}
}

func Failure(format string, args ...any) Response {
	return Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Decode parses a raw helper reply. Anything that is not a response object
// with a known status becomes an error response describing the problem.
func Decode(raw []byte) Response {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Failure("malformed response from helper: %v", err)
	}
	switch resp.Status {
	case StatusSuccess, StatusError:
		return resp
	default:
		return Failure("malformed response from helper: unknown status %q", resp.Status)
	}
}
