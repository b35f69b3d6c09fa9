package models

import "time"

// RequestStatus is the lifecycle state of a blood request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// IsValidResolution reports whether the status is a terminal state a donor
// may resolve a request to.
func IsValidResolution(status RequestStatus) bool {
	return status == StatusAccepted || status == StatusRejected
}

// BloodRequest represents one request for a unit of blood.
//
// Status starts at pending and is set at most once to a non-pending value.
// AcceptedBy is non-nil iff Status is accepted.
type BloodRequest struct {
	ID         string        `db:"id" json:"id"`
	Name       string        `db:"name" json:"name"`
	Age        int           `db:"age" json:"age"`
	BloodType  string        `db:"blood_type" json:"blood_type"`
	Email      string        `db:"email" json:"email"`
	Phone      string        `db:"phone" json:"phone"`
	Status     RequestStatus `db:"status" json:"status"`
	AcceptedBy *string       `db:"accepted_by" json:"accepted_by,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
