// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RequestStatus is the lifecycle of one generation or refinement request.
type RequestStatus string

const (
	RequestIdle      RequestStatus = "idle"
	RequestPending   RequestStatus = "pending"
	RequestSucceeded RequestStatus = "succeeded"
	RequestFailed    RequestStatus = "failed"
)

// RequestState is the last known state of requests issued for one scope
// (a project or a section).
type RequestState struct {
	Status RequestStatus `json:"status" yaml:"status"`

	// Err is set when Status is RequestFailed.
	Err error `json:"-" yaml:"-"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Pending reports whether a request is in flight.
func (s RequestState) Pending() bool {
	return s.Status == RequestPending
}
