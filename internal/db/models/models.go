// Package models defines the persistent data model
package models

const (
	// DefaultLimit is the max number of rows retrieved from the DB per listing API call
	DefaultLimit = 50
)

// ListOptions represents pagination options for list operations
type ListOptions struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the options to sane bounds
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 || o.Limit > DefaultLimit {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
