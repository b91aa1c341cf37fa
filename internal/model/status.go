// Package model defines the job application record shared by the capture
// and dashboard processes.
//
// Status values shown on the board:
//
//	Applied ──► Under Review ──► Interview Scheduled ──► Offer
//	    │             │                  │                 │
//	    └─────────────┴──────────────────┴─────────────────┴──► Rejected
//
// The dashboard lets a user set any status on edit; the graph above is the
// usual progression, not an enforced one.
package model

import "fmt"

// Status mirrors the status strings used by the backend and the dashboard.
type Status string

const (
	StatusApplied            Status = "Applied"
	StatusUnderReview        Status = "Under Review"
	StatusInterviewScheduled Status = "Interview Scheduled"
	StatusOffer              Status = "Offer"
	StatusRejected           Status = "Rejected"
)

// DefaultStatus is assigned to records that arrive without one.
const DefaultStatus = StatusApplied

// AllStatuses lists every status in board order.
var AllStatuses = []Status{
	StatusApplied,
	StatusUnderReview,
	StatusInterviewScheduled,
	StatusOffer,
	StatusRejected,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values. Matching is exact: case and surrounding spaces matter.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusUnderReview, StatusInterviewScheduled, StatusOffer, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsClosed reports whether an application has reached an outcome.
func IsClosed(s Status) bool { return s == StatusOffer || s == StatusRejected }
