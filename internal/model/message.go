package model

import "time"

// MessageType tags envelopes exchanged between capture and a dashboard.
type MessageType string

// TypeJobApplicationData carries a freshly captured record to a dashboard.
const TypeJobApplicationData MessageType = "JOB_APPLICATION_DATA"

// Envelope is the payload delivered to dashboards by messaging or
// injection.
type Envelope struct {
	Type    MessageType `json:"type"`
	JobData JobRecord   `json:"jobData"`
}

// NewEnvelope wraps rec for delivery to a dashboard.
func NewEnvelope(rec JobRecord) Envelope {
	return Envelope{Type: TypeJobApplicationData, JobData: rec}
}

// LiveKind is the type of a push-channel message.
type LiveKind string

const (
	LiveInitialData        LiveKind = "INITIAL_DATA"
	LiveNewApplication     LiveKind = "NEW_APPLICATION"
	LiveApplicationUpdated LiveKind = "APPLICATION_UPDATED"
)

// LiveMessage is one frame of the backend push channel.
type LiveMessage struct {
	Type         LiveKind    `json:"type"`
	Applications []JobRecord `json:"applications,omitempty"`
	Application  *JobRecord  `json:"application,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Company     *string `json:"company,omitempty"`
	Position    *string `json:"position,omitempty"`
	Location    *string `json:"location,omitempty"`
	Salary      *string `json:"salary,omitempty"`
	JobURL      *string `json:"jobUrl,omitempty"`
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Status      *Status `json:"status,omitempty"`
	AppliedDate *string `json:"appliedDate,omitempty"`
}

// Validate checks the fields a patch sets.
func (p Patch) Validate() error {
	if p.Status != nil {
		if _, err := ParseStatus(string(*p.Status)); err != nil {
			return &ValidationError{Msg: err.Error()}
		}
	}
	if p.AppliedDate != nil && *p.AppliedDate != "" {
		if _, err := time.Parse(DateLayout, *p.AppliedDate); err != nil {
			return &ValidationError{Msg: "appliedDate must be YYYY-MM-DD"}
		}
	}
	if p.Company != nil && p.Position != nil && !(JobRecord{Company: *p.Company, Position: *p.Position}).Usable() {
		return &ValidationError{Msg: "record needs a company or a position"}
	}
	return nil
}

// Apply returns rec with every set field of p copied over.
func (p Patch) Apply(rec JobRecord) JobRecord {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&rec.Company, p.Company)
	set(&rec.Position, p.Position)
	set(&rec.Location, p.Location)
	set(&rec.Salary, p.Salary)
	set(&rec.JobURL, p.JobURL)
	set(&rec.Description, p.Description)
	set(&rec.Notes, p.Notes)
	set(&rec.AppliedDate, p.AppliedDate)
	if p.Status != nil {
		rec.Status = *p.Status
	}
	return rec
}
