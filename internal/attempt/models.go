package attempt

import "time"

// Status is the attempt lifecycle state. Transitions are rejected
// unless listed in the transition table; nothing compares raw strings
// at call sites.
type Status string

const (
	StatusInProgress    Status = "in_progress"
	StatusSubmitted     Status = "submitted"
	StatusApproved      Status = "approved"
	StatusNeedsRevision Status = "needs_revision"
)

var transitions = map[Status][]Status{
	StatusInProgress:    {StatusSubmitted},
	StatusSubmitted:     {StatusApproved, StatusNeedsRevision},
	StatusNeedsRevision: {StatusInProgress},
	StatusApproved:      {}, // terminal
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Active reports whether a participant can still work on the attempt.
// At most one active attempt may exist per (participant, assessment).
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusNeedsRevision
}

// Decision is a reviewer's verdict on a submitted attempt.
type Decision string

const (
	DecisionApprove       Decision = "approve"
	DecisionNeedsRevision Decision = "needs_revision"
)

type Attempt struct {
	ID            int64  `json:"attempt_id"`
	ParticipantID string `json:"participant_id"`
	AssessmentID  int64  `json:"assessment_id"`
	Number        int    `json:"attempt_number"`
	Status        Status `json:"status"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`

	ReviewedBy     string `json:"reviewed_by,omitempty"`
	ReviewerNotes  string `json:"reviewer_notes,omitempty"`
	ApprovalViewed bool   `json:"approval_viewed"`

	// QuestionOrder is fixed when the attempt record is first created
	// (or regenerated once for records that predate the column) and is
	// the authoritative sequence; CurrentIndex is a cursor into it.
	QuestionOrder []int64 `json:"question_order"`
	CurrentIndex  int     `json:"current_question_index"`
}

// OrderIndex returns the position of questionID within the attempt's
// persisted order, or -1 when the question is not part of the attempt.
func (a Attempt) OrderIndex(questionID int64) int {
	for i, id := range a.QuestionOrder {
		if id == questionID {
			return i
		}
	}
	return -1
}

// Response holds one answer per (attempt, question); resubmissions
// overwrite in place, enforced by a unique constraint in storage.
type Response struct {
	ID               int64     `json:"response_id"`
	AttemptID        int64     `json:"attempt_id"`
	QuestionID       int64     `json:"question_id"`
	Text             string    `json:"response_text,omitempty"`
	SelectedOptionID *int64    `json:"selected_option_id,omitempty"`
	ReviewerComment  string    `json:"reviewer_comment,omitempty"`
	NeedsRevision    bool      `json:"needs_revision"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Participant is the slice of the enrollment record the attempt core
// reads (stage gate) and mutates (stage advance on approval).
type Participant struct {
	ID          string `json:"participant_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CurrentStep int    `json:"current_step"`
	Active      bool   `json:"is_active"`
}
