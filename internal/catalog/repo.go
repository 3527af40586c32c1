package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: not found")

// Store is the read surface the attempt core depends on, plus the
// seeding operations used at deploy time. Definitions are immutable
// per deployment; nothing in the core mutates them.
type Store interface {
	StepByNumber(ctx context.Context, number int) (Step, error)
	ListSteps(ctx context.Context) ([]Step, error)

	// AssessmentForStep returns ErrNotFound when a step has no
	// assessment yet (permitted during setup).
	AssessmentForStep(ctx context.Context, stepID int64) (Assessment, error)
	GetAssessment(ctx context.Context, id int64) (Assessment, error)

	GetQuestion(ctx context.Context, id int64) (Question, error)
	// Questions returns the assessment's questions sorted by display
	// order, options included for multiple-choice.
	Questions(ctx context.Context, assessmentID int64) ([]Question, error)

	PutStep(ctx context.Context, s Step) (Step, error)
	PutAssessment(ctx context.Context, a Assessment) (Assessment, error)
	PutQuestion(ctx context.Context, q Question) (Question, error)
}
