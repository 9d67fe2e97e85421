// Package todo holds the in-memory todo list and the title resolution
// helpers the agent uses when it only has an approximate name.
package todo

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no item has the requested ID.
var ErrNotFound = errors.New("todo item not found")

// Priority is the optional urgency of an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the accepted priority values in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Item is a single todo. ID and CreatedAt are assigned by the Store and
// never change afterwards.
type Item struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	DueDate   string    `json:"dueDate,omitempty"` // YYYY-MM-DD, not validated
	Priority  Priority  `json:"priority,omitempty"`
}

// CreateOptions carries the optional fields accepted by Create.
type CreateOptions struct {
	DueDate  string
	Priority Priority
}

// Filter narrows List results. Zero-value fields are ignored; set fields
// are combined with AND.
type Filter struct {
	Completed *bool
	DueDate   string
	Priority  Priority
}

func (f Filter) matches(it Item) bool {
	if f.Completed != nil && it.Completed != *f.Completed {
		return false
	}
	if f.DueDate != "" && it.DueDate != f.DueDate {
		return false
	}
	if f.Priority != "" && it.Priority != f.Priority {
		return false
	}
	return true
}

// Patch is a partial update. Only non-nil fields are applied.
type Patch struct {
	Title     *string
	DueDate   *string
	Priority  *Priority
	Completed *bool
}

func (p Patch) apply(it *Item) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.DueDate != nil {
		it.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		it.Priority = *p.Priority
	}
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
}
