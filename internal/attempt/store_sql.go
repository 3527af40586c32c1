package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const attemptCols = `attempt_id, participant_id, assessment_id, attempt_number, status,
	started_at, submitted_at, reviewed_by, reviewed_at, reviewer_notes,
	approval_viewed, question_order, current_index`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var started, submitted, reviewed sql.NullInt64
	var reviewedBy, notes, orderJSON sql.NullString
	err := row.Scan(&a.ID, &a.ParticipantID, &a.AssessmentID, &a.Number, &a.Status,
		&started, &submitted, &reviewedBy, &reviewed, &notes,
		&a.ApprovalViewed, &orderJSON, &a.CurrentIndex)
	if err != nil {
		return Attempt{}, err
	}
	a.StartedAt = unixPtr(started)
	a.SubmittedAt = unixPtr(submitted)
	a.ReviewedAt = unixPtr(reviewed)
	a.ReviewedBy = reviewedBy.String
	a.ReviewerNotes = notes.String
	if orderJSON.Valid && orderJSON.String != "" {
		if err := json.Unmarshal([]byte(orderJSON.String), &a.QuestionOrder); err != nil {
			return Attempt{}, fmt.Errorf("decode question order: %w", err)
		}
	}
	return a, nil
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func (s *SQLStore) GetParticipant(ctx context.Context, id string) (Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT participant_id, first_name, last_name, current_step, is_active
		 FROM participants WHERE participant_id=$1`, id)
	var p Participant
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.CurrentStep, &p.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Participant{}, ErrParticipantNotFound
		}
		return Participant{}, err
	}
	return p, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts WHERE attempt_id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) ActiveAttempt(ctx context.Context, participantID string, assessmentID int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts
		 WHERE participant_id=$1 AND assessment_id=$2 AND status IN ('in_progress','needs_revision')
		 ORDER BY attempt_number DESC LIMIT 1`, participantID, assessmentID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) ActiveAttemptForParticipant(ctx context.Context, participantID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts
		 WHERE participant_id=$1 AND status IN ('in_progress','needs_revision')
		 ORDER BY attempt_id DESC LIMIT 1`, participantID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) LatestAttempt(ctx context.Context, participantID string, assessmentID int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts
		 WHERE participant_id=$1 AND assessment_id=$2
		 ORDER BY attempt_number DESC LIMIT 1`, participantID, assessmentID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) LatestAttemptForParticipant(ctx context.Context, participantID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts
		 WHERE participant_id=$1
		 ORDER BY attempt_id DESC LIMIT 1`, participantID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) CountAttempts(ctx context.Context, participantID string, assessmentID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assessment_attempts WHERE participant_id=$1 AND assessment_id=$2`,
		participantID, assessmentID).Scan(&n)
	return n, err
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	orderJSON, err := json.Marshal(a.QuestionOrder)
	if err != nil {
		return Attempt{}, err
	}
	var started any
	if a.StartedAt != nil {
		started = a.StartedAt.Unix()
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO assessment_attempts
		   (participant_id, assessment_id, attempt_number, status, started_at, question_order, current_index)
		 VALUES ($1,$2,$3,$4,$5,$6,0)
		 RETURNING attempt_id`,
		a.ParticipantID, a.AssessmentID, a.Number, string(StatusInProgress), started, string(orderJSON)).Scan(&a.ID)
	if err != nil {
		return Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	a.Status = StatusInProgress
	a.CurrentIndex = 0
	return a, nil
}

func (s *SQLStore) Reopen(ctx context.Context, attemptID int64, order []int64) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts WHERE attempt_id=$1`, attemptID)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	if !a.Status.CanTransition(StatusInProgress) {
		return Attempt{}, ErrInvalidAttemptState
	}
	if len(a.QuestionOrder) == 0 && len(order) > 0 {
		a.QuestionOrder = order
	}
	orderJSON, err := json.Marshal(a.QuestionOrder)
	if err != nil {
		return Attempt{}, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE assessment_attempts
		 SET status=$1, current_index=0, question_order=$2
		 WHERE attempt_id=$3 AND status=$4`,
		string(StatusInProgress), string(orderJSON), attemptID, string(StatusNeedsRevision))
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Attempt{}, ErrInvalidAttemptState
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	a.Status = StatusInProgress
	a.CurrentIndex = 0
	return a, nil
}

func (s *SQLStore) SetOrder(ctx context.Context, attemptID int64, order []int64) error {
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE assessment_attempts SET question_order=$1
		 WHERE attempt_id=$2 AND (question_order IS NULL OR question_order='' OR question_order='null')`,
		string(orderJSON), attemptID)
	return err
}

func (s *SQLStore) SetCursor(ctx context.Context, attemptID int64, index int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE assessment_attempts SET current_index=$1 WHERE attempt_id=$2`, index, attemptID)
	return err
}

// UpsertResponse relies on the (attempt_id, question_id) unique
// constraint so concurrent duplicate submissions collapse to one row.
func (s *SQLStore) UpsertResponse(ctx context.Context, r Response) (Response, error) {
	now := time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO responses (attempt_id, question_id, response_text, selected_option_id, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		   response_text=EXCLUDED.response_text,
		   selected_option_id=EXCLUDED.selected_option_id,
		   updated_at=EXCLUDED.updated_at
		 RETURNING response_id`,
		r.AttemptID, r.QuestionID, nullString(r.Text), r.SelectedOptionID, now).Scan(&r.ID)
	if err != nil {
		return Response{}, fmt.Errorf("upsert response: %w", err)
	}
	r.UpdatedAt = time.Unix(now, 0).UTC()
	return r, nil
}

func (s *SQLStore) GetResponse(ctx context.Context, attemptID, questionID int64) (Response, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT response_id, attempt_id, question_id, response_text, selected_option_id,
		        reviewer_comment, needs_revision, updated_at
		 FROM responses WHERE attempt_id=$1 AND question_id=$2`, attemptID, questionID)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, err
	}
	return r, true, nil
}

func scanResponse(row rowScanner) (Response, error) {
	var r Response
	var text, comment sql.NullString
	var opt sql.NullInt64
	var updated int64
	err := row.Scan(&r.ID, &r.AttemptID, &r.QuestionID, &text, &opt, &comment, &r.NeedsRevision, &updated)
	if err != nil {
		return Response{}, err
	}
	r.Text = text.String
	r.ReviewerComment = comment.String
	if opt.Valid {
		v := opt.Int64
		r.SelectedOptionID = &v
	}
	r.UpdatedAt = time.Unix(updated, 0).UTC()
	return r, nil
}

func (s *SQLStore) CountResponses(ctx context.Context, attemptID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM responses WHERE attempt_id=$1`, attemptID).Scan(&n)
	return n, err
}

func (s *SQLStore) ListResponses(ctx context.Context, attemptID int64) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT response_id, attempt_id, question_id, response_text, selected_option_id,
		        reviewer_comment, needs_revision, updated_at
		 FROM responses WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) AnnotateResponse(ctx context.Context, attemptID, questionID int64, comment string, needsRevision bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE responses SET reviewer_comment=$1, needs_revision=$2
		 WHERE attempt_id=$3 AND question_id=$4`,
		nullString(comment), needsRevision, attemptID, questionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotInAttempt
	}
	return nil
}

func (s *SQLStore) Finalize(ctx context.Context, attemptID int64) (Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	switch a.Status {
	case StatusSubmitted, StatusApproved:
		// duplicate completion call
		return a, nil
	}
	if !a.Status.CanTransition(StatusSubmitted) {
		return Attempt{}, ErrInvalidAttemptState
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessment_attempts SET status=$1, submitted_at=$2
		 WHERE attempt_id=$3 AND status=$4`,
		string(StatusSubmitted), time.Now().Unix(), attemptID, string(StatusInProgress))
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost a race with another finalize; idempotent
		return s.GetAttempt(ctx, attemptID)
	}
	return s.GetAttempt(ctx, attemptID)
}

// Review is the one both-or-neither write in the core: the status CAS
// and the stage advance commit together or not at all.
func (s *SQLStore) Review(ctx context.Context, attemptID int64, reviewerID string, decision Decision, notes string) (Attempt, error) {
	var to Status
	switch decision {
	case DecisionApprove:
		to = StatusApproved
	case DecisionNeedsRevision:
		to = StatusNeedsRevision
	default:
		return Attempt{}, fmt.Errorf("unknown decision %q", decision)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE assessment_attempts
		 SET status=$1, reviewed_by=$2, reviewed_at=$3, reviewer_notes=$4
		 WHERE attempt_id=$5 AND status=$6`,
		string(to), reviewerID, time.Now().Unix(), nullString(notes), attemptID, string(StatusSubmitted))
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM assessment_attempts WHERE attempt_id=$1`, attemptID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, ErrInvalidAttemptState
	}

	if decision == DecisionApprove {
		res, err := tx.ExecContext(ctx,
			`UPDATE participants SET current_step=current_step+1
			 WHERE participant_id=(SELECT participant_id FROM assessment_attempts WHERE attempt_id=$1)`,
			attemptID)
		if err != nil {
			return Attempt{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return Attempt{}, ErrParticipantNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) ListPending(ctx context.Context) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptCols+` FROM assessment_attempts
		 WHERE status=$1 ORDER BY submitted_at DESC`, string(StatusSubmitted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetApprovalViewed(ctx context.Context, attemptID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessment_attempts SET approval_viewed=$1 WHERE attempt_id=$2 AND status=$3`,
		true, attemptID, string(StatusApproved))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidAttemptState
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
