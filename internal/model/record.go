package model

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar format of JobRecord.AppliedDate.
const DateLayout = "2006-01-02"

// JobRecord is a single tracked application. It is produced by an extractor
// or the dashboard form and serialised as-is to the backend, the local
// queue and the dashboard mirror. Empty strings mean "absent".
type JobRecord struct {
	ID          string `json:"id,omitempty"`
	Company     string `json:"company,omitempty"`
	Position    string `json:"position,omitempty"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary,omitempty"`
	JobURL      string `json:"jobUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Eligibility string `json:"eligibility,omitempty"`
	Criteria    string `json:"criteria,omitempty"`
	Status      Status `json:"status,omitempty"`
	AppliedDate string `json:"appliedDate,omitempty"`
	ExtractedAt string `json:"extractedAt,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Usable reports whether the record carries a company or a position.
// Extraction that yields neither counts as a failure.
func (r JobRecord) Usable() bool {
	return strings.TrimSpace(r.Company) != "" || strings.TrimSpace(r.Position) != ""
}

// Validate checks a record at a pipeline or data-layer boundary.
func (r JobRecord) Validate() error {
	if !r.Usable() {
		return &ValidationError{Msg: "record needs a company or a position"}
	}
	if r.Status != "" {
		if _, err := ParseStatus(string(r.Status)); err != nil {
			return &ValidationError{Msg: err.Error()}
		}
	}
	if r.AppliedDate != "" {
		if _, err := time.Parse(DateLayout, r.AppliedDate); err != nil {
			return &ValidationError{Msg: "appliedDate must be YYYY-MM-DD"}
		}
	}
	return nil
}

// Normalize trims every text field and fills the status and applied date
// defaults relative to now.
func (r JobRecord) Normalize(now time.Time) JobRecord {
	for _, f := range r.textFields() {
		*f = strings.TrimSpace(*f)
	}
	if r.Status == "" {
		r.Status = DefaultStatus
	}
	if r.AppliedDate == "" {
		r.AppliedDate = now.Format(DateLayout)
	}
	return r
}

// WithCreateDefaults replaces a missing company or position with the
// placeholders the dashboard form uses.
func (r JobRecord) WithCreateDefaults() JobRecord {
	if strings.TrimSpace(r.Company) == "" {
		r.Company = "Unknown Company"
	}
	if strings.TrimSpace(r.Position) == "" {
		r.Position = "Unknown Position"
	}
	return r
}

// Merge fills every empty field of r from other.
func (r JobRecord) Merge(other JobRecord) JobRecord {
	dst := r.textFields()
	src := other.textFields()
	for i := range dst {
		if *dst[i] == "" {
			*dst[i] = *src[i]
		}
	}
	if r.Status == "" {
		r.Status = other.Status
	}
	return r
}

// ForCreate strips the identity and timestamps the backend assigns itself.
func (r JobRecord) ForCreate() JobRecord {
	r.ID = ""
	r.CreatedAt = ""
	r.UpdatedAt = ""
	return r
}

func (r *JobRecord) textFields() []*string {
	return []*string{
		&r.Company, &r.Position, &r.Location, &r.Salary, &r.JobURL,
		&r.Description, &r.Notes, &r.Duration, &r.Eligibility, &r.Criteria,
		&r.AppliedDate, &r.ExtractedAt,
	}
}

// SameApplication is the duplicate rule: company and position match
// case-insensitively after trimming.
func SameApplication(a, b JobRecord) bool {
	return strings.EqualFold(strings.TrimSpace(a.Company), strings.TrimSpace(b.Company)) &&
		strings.EqualFold(strings.TrimSpace(a.Position), strings.TrimSpace(b.Position))
}

// NewLocalID returns a timestamp-derived id for records created without a
// backend.
func NewLocalID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// Timestamp formats t the way records carry it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
