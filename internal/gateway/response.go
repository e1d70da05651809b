package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

// maxBodySize caps how much of an API response is kept in memory.
const maxBodySize = 1 << 20

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DecodeJSON(v any) error {
	err := json.Unmarshal(r.Body, v)
	if err != nil {
		return fmt.Errorf("failed to decode api response: %w", err)
	}
	return nil
}

// FieldErrors reads a {"field": ["message", ...]} validation body. Keys
// holding anything but a list of strings, or a plain string, are skipped.
func (r *Response) FieldErrors() map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &raw); err != nil {
		return nil
	}

	fields := make(map[string][]string, len(raw))
	for key, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[key] = []string{single}
		}
	}
	return fields
}

// Detail returns the "detail" message of an error body, if any.
func (r *Response) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	return body.Detail
}

// Messages flattens FieldErrors into "field: message" lines in field order.
func (r *Response) Messages() []string {
	fields := r.FieldErrors()
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var messages []string
	for _, key := range keys {
		for _, msg := range fields[key] {
			if key == "detail" || key == "non_field_errors" {
				messages = append(messages, msg)
				continue
			}
			messages = append(messages, key+": "+msg)
		}
	}
	return messages
}
