package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrForbidden        = errors.New("ticket belongs to another user")
	ErrForeignImagePath = errors.New("image path outside of the owner's namespace")
)

// ValidationError lists every rejected field. No storage call is made when
// it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
