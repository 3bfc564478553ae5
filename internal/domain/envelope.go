package domain

import "encoding/json"

// APIError is the error section of the CRM response envelope.
type APIError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// PageMeta carries pagination hints for list endpoints.
type PageMeta struct {
	Page        int  `json:"page,omitempty"`
	Limit       int  `json:"limit,omitempty"`
	Total       int  `json:"total,omitempty"`
	TotalPages  int  `json:"totalPages,omitempty"`
	HasNextPage bool `json:"hasNextPage,omitempty"`
	HasPrevPage bool `json:"hasPrevPage,omitempty"`
}

// Envelope is the shape every CRM API response is wrapped in.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
	Meta    *PageMeta       `json:"meta,omitempty"`
	Message string          `json:"message,omitempty"`
}

// DecodeData unmarshals the data section into v.
func (e *Envelope) DecodeData(v any) error {
	if e == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
