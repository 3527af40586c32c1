package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) StepByNumber(ctx context.Context, number int) (Step, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT step_id, step_number, title, description FROM steps WHERE step_number=$1`, number)
	var st Step
	if err := row.Scan(&st.ID, &st.Number, &st.Title, &st.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Step{}, ErrNotFound
		}
		return Step{}, err
	}
	return st, nil
}

func (s *SQLStore) ListSteps(ctx context.Context) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_id, step_number, title, description FROM steps ORDER BY step_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Step{}
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.ID, &st.Number, &st.Title, &st.Description); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) AssessmentForStep(ctx context.Context, stepID int64) (Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT assessment_id, step_id, title, instructions, randomize
		 FROM assessments WHERE step_id=$1 ORDER BY assessment_id LIMIT 1`, stepID)
	return scanAssessment(row)
}

func (s *SQLStore) GetAssessment(ctx context.Context, id int64) (Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT assessment_id, step_id, title, instructions, randomize
		 FROM assessments WHERE assessment_id=$1`, id)
	return scanAssessment(row)
}

func scanAssessment(row *sql.Row) (Assessment, error) {
	var a Assessment
	if err := row.Scan(&a.ID, &a.StepID, &a.Title, &a.Instructions, &a.Randomize); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, ErrNotFound
		}
		return Assessment{}, err
	}
	return a, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT question_id, assessment_id, question_text, question_type, display_order
		 FROM questions WHERE question_id=$1`, id)
	var q Question
	if err := row.Scan(&q.ID, &q.AssessmentID, &q.Text, &q.Type, &q.DisplayOrder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	if q.Type == TypeMultipleChoice {
		opts, err := s.options(ctx, q.ID)
		if err != nil {
			return Question{}, err
		}
		q.Options = opts
	}
	return q, nil
}

func (s *SQLStore) Questions(ctx context.Context, assessmentID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, assessment_id, question_text, question_type, display_order
		 FROM questions WHERE assessment_id=$1 ORDER BY display_order, question_id`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Text, &q.Type, &q.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Type != TypeMultipleChoice {
			continue
		}
		opts, err := s.options(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Options = opts
	}
	return out, nil
}

func (s *SQLStore) options(ctx context.Context, questionID int64) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT option_id, question_id, option_text, option_value
		 FROM question_options WHERE question_id=$1 ORDER BY option_id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Option{}
	for rows.Next() {
		var o Option
		var val sql.NullInt64
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &val); err != nil {
			return nil, err
		}
		if val.Valid {
			v := int(val.Int64)
			o.Value = &v
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutStep(ctx context.Context, st Step) (Step, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO steps (step_number, title, description) VALUES ($1,$2,$3)
		 ON CONFLICT (step_number) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description
		 RETURNING step_id`,
		st.Number, st.Title, st.Description).Scan(&st.ID)
	if err != nil {
		return Step{}, fmt.Errorf("put step %d: %w", st.Number, err)
	}
	return st, nil
}

func (s *SQLStore) PutAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO assessments (step_id, title, instructions, randomize) VALUES ($1,$2,$3,$4)
		 RETURNING assessment_id`,
		a.StepID, a.Title, a.Instructions, a.Randomize).Scan(&a.ID)
	if err != nil {
		return Assessment{}, fmt.Errorf("put assessment: %w", err)
	}
	return a, nil
}

// PutQuestion inserts the question and its options in one transaction
// so a partially-seeded multiple-choice question never becomes visible.
func (s *SQLStore) PutQuestion(ctx context.Context, q Question) (Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO questions (assessment_id, question_text, question_type, display_order)
		 VALUES ($1,$2,$3,$4) RETURNING question_id`,
		q.AssessmentID, q.Text, q.Type, q.DisplayOrder).Scan(&q.ID)
	if err != nil {
		return Question{}, fmt.Errorf("put question: %w", err)
	}
	for i := range q.Options {
		q.Options[i].QuestionID = q.ID
		err = tx.QueryRowContext(ctx,
			`INSERT INTO question_options (question_id, option_text, option_value)
			 VALUES ($1,$2,$3) RETURNING option_id`,
			q.ID, q.Options[i].Text, q.Options[i].Value).Scan(&q.Options[i].ID)
		if err != nil {
			return Question{}, fmt.Errorf("put option: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Question{}, err
	}
	return q, nil
}
