package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/stepwise-health/stepwise/internal/catalog"
	syncx "github.com/stepwise-health/stepwise/internal/sync"
)

// Service is the attempt state machine. All progress state lives in
// the store; the session cache is a mirror that is rebuilt from the
// store whenever it is missing or disagrees.
type Service struct {
	store   Store
	catalog catalog.Store
	cache   *SessionCache
	events  *syncx.EventRepo // optional

	// rng is shared by every request goroutine; rngMu serializes it.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(store Store, cat catalog.Store, cache *SessionCache, events *syncx.EventRepo) *Service {
	return &Service{
		store:   store,
		catalog: cat,
		cache:   cache,
		events:  events,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartResult is what the web layer needs to show the first question.
type StartResult struct {
	Attempt    Attempt `json:"attempt"`
	QuestionID int64   `json:"question_id"`
}

// AnswerPayload is a validated answer to one question: exactly one of
// Text (written) or SelectedOptionID (multiple choice) is set.
type AnswerPayload struct {
	Text             string
	SelectedOptionID *int64
}

// AnswerResult points at the next question, or reports completion.
type AnswerResult struct {
	Complete       bool  `json:"complete"`
	NextQuestionID int64 `json:"next_question_id,omitempty"`
	Position       int   `json:"position"` // 1-based, for progress display
	Total          int   `json:"total"`
}

// StartOrResume begins the assessment for the participant's current
// step, or resumes the active attempt if one exists. Safe to call
// repeatedly: an in_progress attempt is returned as-is.
func (s *Service) StartOrResume(ctx context.Context, participantID string, stepNumber int) (StartResult, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return StartResult{}, err
	}
	if stepNumber != p.CurrentStep {
		return StartResult{}, fmt.Errorf("%w: participant is on step %d", ErrOutOfSequence, p.CurrentStep)
	}
	step, err := s.catalog.StepByNumber(ctx, stepNumber)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return StartResult{}, fmt.Errorf("%w: step %d", ErrNotConfigured, stepNumber)
		}
		return StartResult{}, err
	}
	asm, err := s.catalog.AssessmentForStep(ctx, step.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return StartResult{}, fmt.Errorf("%w: step %d", ErrNotConfigured, stepNumber)
		}
		return StartResult{}, err
	}

	a, err := s.store.ActiveAttempt(ctx, participantID, asm.ID)
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		a, err = s.createAttempt(ctx, p.ID, asm)
		if err != nil {
			// Two concurrent starts can both miss the lookup; the unique
			// active-attempt index rejects the loser, who resumes the
			// winner's row.
			existing, lookupErr := s.store.ActiveAttempt(ctx, participantID, asm.ID)
			if lookupErr != nil {
				return StartResult{}, err
			}
			a = existing
		}
	case err != nil:
		return StartResult{}, err
	case a.Status == StatusNeedsRevision:
		// Same record, new pass from question 1. The stored order is
		// kept; it is generated here only for records that predate the
		// order column.
		var order []int64
		if len(a.QuestionOrder) == 0 {
			if order, err = s.generateOrder(ctx, asm); err != nil {
				return StartResult{}, err
			}
		}
		if a, err = s.store.Reopen(ctx, a.ID, order); err != nil {
			return StartResult{}, err
		}
		s.logEvent(ctx, syncx.EventAttemptReopened, a)
	default:
		// in_progress: resume as-is, backfilling a missing order once.
		if len(a.QuestionOrder) == 0 {
			order, err := s.generateOrder(ctx, asm)
			if err != nil {
				return StartResult{}, err
			}
			if err := s.store.SetOrder(ctx, a.ID, order); err != nil {
				return StartResult{}, err
			}
			if a, err = s.store.GetAttempt(ctx, a.ID); err != nil {
				return StartResult{}, err
			}
		}
	}

	// A cursor parked past the last question (all answered, never
	// submitted) resumes on the final question.
	if a.CurrentIndex >= len(a.QuestionOrder) {
		last := len(a.QuestionOrder) - 1
		if err := s.store.SetCursor(ctx, a.ID, last); err != nil {
			return StartResult{}, err
		}
		a.CurrentIndex = last
	}

	if s.cache != nil {
		s.cache.Put(participantID, a)
	}
	return StartResult{Attempt: a, QuestionID: a.QuestionOrder[a.CurrentIndex]}, nil
}

func (s *Service) createAttempt(ctx context.Context, participantID string, asm catalog.Assessment) (Attempt, error) {
	order, err := s.generateOrder(ctx, asm)
	if err != nil {
		return Attempt{}, err
	}
	prior, err := s.store.CountAttempts(ctx, participantID, asm.ID)
	if err != nil {
		return Attempt{}, err
	}
	now := time.Now().UTC()
	a, err := s.store.CreateAttempt(ctx, Attempt{
		ParticipantID: participantID,
		AssessmentID:  asm.ID,
		Number:        prior + 1,
		StartedAt:     &now,
		QuestionOrder: order,
	})
	if err != nil {
		return Attempt{}, err
	}
	s.logEvent(ctx, syncx.EventAttemptStarted, a)
	return a, nil
}

func (s *Service) generateOrder(ctx context.Context, asm catalog.Assessment) ([]int64, error) {
	qs, err := s.catalog.Questions(ctx, asm.ID)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: assessment %d has no questions", ErrNotConfigured, asm.ID)
	}
	s.rngMu.Lock()
	order := GenerateOrder(qs, asm.Randomize, s.rng)
	s.rngMu.Unlock()
	return order, nil
}

// activeAttempt looks up the participant's live attempt, preferring
// the cache but always confirming against the store. A stale or
// missing cache entry falls through to a persisted lookup.
func (s *Service) activeAttempt(ctx context.Context, participantID string) (Attempt, error) {
	if s.cache != nil {
		if st, ok := s.cache.Get(participantID); ok {
			a, err := s.store.GetAttempt(ctx, st.AttemptID)
			if err == nil && a.ParticipantID == participantID && a.Status.Active() {
				return a, nil
			}
			if err != nil && !errors.Is(err, ErrAttemptNotFound) {
				return Attempt{}, err
			}
			s.cache.Drop(participantID)
		}
	}
	a, err := s.store.ActiveAttemptForParticipant(ctx, participantID)
	if err != nil {
		return Attempt{}, err
	}
	if s.cache != nil {
		s.cache.Put(participantID, a)
	}
	return a, nil
}

// ResolveCurrentPosition locates questionID within the participant's
// active attempt. The order is authoritative for where a question
// lives; the cursor only records what to show by default, so a cursor
// that disagrees with the resolved index is corrected in place.
func (s *Service) ResolveCurrentPosition(ctx context.Context, participantID string, questionID int64) (Attempt, int, error) {
	a, err := s.activeAttempt(ctx, participantID)
	if err != nil {
		return Attempt{}, 0, err
	}
	idx := a.OrderIndex(questionID)
	if idx < 0 {
		return Attempt{}, 0, fmt.Errorf("%w: question %d", ErrQuestionNotInAttempt, questionID)
	}
	if idx != a.CurrentIndex {
		if err := s.store.SetCursor(ctx, a.ID, idx); err != nil {
			return Attempt{}, 0, err
		}
		a.CurrentIndex = idx
	}
	if s.cache != nil {
		s.cache.Put(participantID, a)
	}
	return a, idx, nil
}

// RecordAnswer upserts the response for (attempt, question) and
// advances the cursor, returning the next question or completion.
func (s *Service) RecordAnswer(ctx context.Context, participantID string, questionID int64, payload AnswerPayload) (AnswerResult, error) {
	a, idx, err := s.ResolveCurrentPosition(ctx, participantID, questionID)
	if err != nil {
		return AnswerResult{}, err
	}
	if err := s.validatePayload(ctx, questionID, payload); err != nil {
		return AnswerResult{}, err
	}
	if _, err := s.store.UpsertResponse(ctx, Response{
		AttemptID:        a.ID,
		QuestionID:       questionID,
		Text:             payload.Text,
		SelectedOptionID: payload.SelectedOptionID,
	}); err != nil {
		return AnswerResult{}, err
	}

	total := len(a.QuestionOrder)
	next := idx + 1
	if err := s.store.SetCursor(ctx, a.ID, next); err != nil {
		return AnswerResult{}, err
	}
	a.CurrentIndex = next
	if s.cache != nil {
		s.cache.Put(participantID, a)
	}
	if next < total {
		return AnswerResult{NextQuestionID: a.QuestionOrder[next], Position: next + 1, Total: total}, nil
	}
	return AnswerResult{Complete: true, Position: total, Total: total}, nil
}

func (s *Service) validatePayload(ctx context.Context, questionID int64, payload AnswerPayload) error {
	q, err := s.catalog.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	switch q.Type {
	case catalog.TypeMultipleChoice:
		if payload.SelectedOptionID == nil {
			return fmt.Errorf("%w: question %d requires an option selection", ErrInvalidAnswer, questionID)
		}
		for _, o := range q.Options {
			if o.ID == *payload.SelectedOptionID {
				return nil
			}
		}
		return fmt.Errorf("%w: option %d does not belong to question %d", ErrInvalidAnswer, *payload.SelectedOptionID, questionID)
	default:
		if payload.Text == "" {
			return fmt.Errorf("%w: question %d requires a written response", ErrInvalidAnswer, questionID)
		}
		return nil
	}
}

// Finalize submits the active attempt once every question has an
// answer. Duplicate calls are no-ops: once the attempt is submitted it
// is no longer active, so a retry is answered from the latest attempt.
func (s *Service) Finalize(ctx context.Context, participantID string) (Attempt, error) {
	a, err := s.activeAttempt(ctx, participantID)
	if errors.Is(err, ErrAttemptNotFound) {
		last, lastErr := s.store.LatestAttemptForParticipant(ctx, participantID)
		if lastErr == nil && (last.Status == StatusSubmitted || last.Status == StatusApproved) {
			return last, nil
		}
		return Attempt{}, err
	}
	if err != nil {
		return Attempt{}, err
	}
	answered, err := s.store.CountResponses(ctx, a.ID)
	if err != nil {
		return Attempt{}, err
	}
	if answered < len(a.QuestionOrder) {
		return Attempt{}, fmt.Errorf("%w: %d of %d questions answered", ErrInvalidAttemptState, answered, len(a.QuestionOrder))
	}
	a, err = s.store.Finalize(ctx, a.ID)
	if err != nil {
		return Attempt{}, err
	}
	if s.cache != nil {
		s.cache.Drop(participantID)
	}
	s.logEvent(ctx, syncx.EventAttemptSubmitted, a)
	return a, nil
}

// Review applies a staff decision. Storage guarantees the status CAS
// and stage advance are atomic; the second of two concurrent reviews
// gets ErrInvalidAttemptState.
func (s *Service) Review(ctx context.Context, attemptID int64, reviewerID string, decision Decision, notes string) (Attempt, error) {
	a, err := s.store.Review(ctx, attemptID, reviewerID, decision, notes)
	if err != nil {
		return Attempt{}, err
	}
	s.logEvent(ctx, syncx.EventAttemptReviewed, a)
	return a, nil
}

func (s *Service) logEvent(ctx context.Context, typ string, a Attempt) {
	if s.events == nil {
		return
	}
	data, _ := json.Marshal(map[string]any{
		"participant_id": a.ParticipantID,
		"assessment_id":  a.AssessmentID,
		"attempt_number": a.Number,
		"status":         a.Status,
	})
	if err := s.events.Append(ctx, syncx.Event{Type: typ, Key: strconv.FormatInt(a.ID, 10), DataJSON: string(data)}); err != nil {
		log.Printf("[AUDIT] append %s for attempt %d: %v", typ, a.ID, err)
	}
}
