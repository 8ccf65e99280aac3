// Package annotation persists free-text notes attached to element selectors
// and derives dashboard views and exports over them.
//
// The store is the single source of truth: an in-memory mapping mirrored
// synchronously to durable storage on every mutation, with subscribe/notify
// for interested views. Instances are constructed and passed explicitly;
// there is no package-level default.
package annotation

import "fmt"

// Status is an annotation's triage state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusDismissed  Status = "dismissed"
)

// Statuses lists all valid states in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusDismissed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status or errors on unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("annotation: unknown status %q", s)
	}
	return st, nil
}

// Target is the reduced element-descriptor snapshot captured with an
// annotation: enough to recognise the element later, nothing more.
type Target struct {
	Tag       string `json:"tag"`
	ID        string `json:"id,omitempty"`
	Selector  string `json:"selector"`
	Component string `json:"component,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Annotation is a persisted note attached to a selector. Mutated only by
// status updates or deletion; IDs never change once created.
type Annotation struct {
	ID        string `json:"id"`
	Selector  string `json:"selector"`
	Target    Target `json:"target"`
	Comment   string `json:"comment"`
	Prompt    string `json:"prompt,omitempty"`
	Snippet   string `json:"snippet,omitempty"` // sanitized element outerHTML
	CreatedAt int64  `json:"created_at"`        // epoch milliseconds
	Status    Status `json:"status"`
}
