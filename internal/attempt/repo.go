package attempt

import "context"

// Store is the persistence contract for the attempt core. Every
// mutation is a single transaction: a failure leaves attempt and
// response rows unchanged and is safe to retry.
type Store interface {
	GetParticipant(ctx context.Context, id string) (Participant, error)

	GetAttempt(ctx context.Context, id int64) (Attempt, error)
	// ActiveAttempt finds the at-most-one attempt for the pair whose
	// status is in_progress or needs_revision.
	ActiveAttempt(ctx context.Context, participantID string, assessmentID int64) (Attempt, error)
	// ActiveAttemptForParticipant is the session-loss recovery path:
	// the participant's sole active attempt, across assessments.
	ActiveAttemptForParticipant(ctx context.Context, participantID string) (Attempt, error)
	// LatestAttempt returns the highest-numbered attempt for the pair,
	// any status.
	LatestAttempt(ctx context.Context, participantID string, assessmentID int64) (Attempt, error)
	// LatestAttemptForParticipant returns the participant's most recent
	// attempt across assessments, any status.
	LatestAttemptForParticipant(ctx context.Context, participantID string) (Attempt, error)
	CountAttempts(ctx context.Context, participantID string, assessmentID int64) (int, error)

	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	// Reopen flips a needs_revision attempt back to in_progress with
	// the cursor at zero. order is applied only when the stored order
	// is absent (records older than the order column).
	Reopen(ctx context.Context, attemptID int64, order []int64) (Attempt, error)
	// SetOrder backfills a missing question order on a legacy
	// in_progress attempt. It never overwrites an existing order.
	SetOrder(ctx context.Context, attemptID int64, order []int64) error
	SetCursor(ctx context.Context, attemptID int64, index int) error

	UpsertResponse(ctx context.Context, r Response) (Response, error)
	GetResponse(ctx context.Context, attemptID, questionID int64) (Response, bool, error)
	CountResponses(ctx context.Context, attemptID int64) (int, error)
	ListResponses(ctx context.Context, attemptID int64) ([]Response, error)
	AnnotateResponse(ctx context.Context, attemptID, questionID int64, comment string, needsRevision bool) error

	// Finalize moves in_progress -> submitted. Idempotent: a second
	// call on a submitted or approved attempt returns it unchanged.
	Finalize(ctx context.Context, attemptID int64) (Attempt, error)

	// Review applies a staff decision to a submitted attempt. The
	// status change and, on approval, the participant's stage advance
	// commit in one transaction; a concurrent second review fails with
	// ErrInvalidAttemptState.
	Review(ctx context.Context, attemptID int64, reviewerID string, decision Decision, notes string) (Attempt, error)

	// ListPending returns submitted attempts awaiting review, most
	// recently submitted first.
	ListPending(ctx context.Context) ([]Attempt, error)
	SetApprovalViewed(ctx context.Context, attemptID int64) error
}
