package model

import "time"

// RunStatus is the externally visible progress of one dispatched run.
type RunStatus struct {
	ID        string    `json:"run_id"`
	ModID     ModID     `json:"mod_id"`
	State     State     `json:"state"`
	Done      bool      `json:"done"`
	Events    []Event   `json:"events"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
