package attempt_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stepwise-health/stepwise/internal/attempt"
	"github.com/stepwise-health/stepwise/internal/catalog"
	"github.com/stepwise-health/stepwise/internal/db"
	syncx "github.com/stepwise-health/stepwise/internal/sync"
)

type env struct {
	db     *sql.DB
	store  *attempt.SQLStore
	cat    *catalog.SQLStore
	cache  *attempt.SessionCache
	events *syncx.EventRepo
	svc    *attempt.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	// unique shared-cache name per test so parallel tests don't collide
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", strings.ReplaceAll(t.Name(), "/", "_"))
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// pin one connection so the in-memory DB outlives pool churn
	conn, err := dbh.Conn(ctx)
	if err != nil {
		t.Fatalf("pin conn: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		dbh.Close()
	})

	e := &env{
		db:     dbh,
		store:  attempt.NewSQLStore(dbh),
		cat:    catalog.NewSQLStore(dbh),
		cache:  attempt.NewSessionCache(),
		events: syncx.NewEventRepo(dbh),
	}
	e.svc = attempt.NewService(e.store, e.cat, e.cache, e.events)
	return e
}

func (e *env) seedParticipant(t *testing.T, id string, step int) {
	t.Helper()
	_, err := e.db.Exec(
		`INSERT INTO participants (participant_id, first_name, last_name, password_hash, current_step, is_active, enrolled_at)
		 VALUES ($1,'Test','Person','x',$2,1,0)`, id, step)
	if err != nil {
		t.Fatalf("seed participant: %v", err)
	}
}

func (e *env) seedStaff(t *testing.T, id, role string) {
	t.Helper()
	_, err := e.db.Exec(
		`INSERT INTO staff (staff_id, first_name, last_name, email, password_hash, role, is_active, added_at)
		 VALUES ($1,'Staff','Member',$2,'x',$3,1,0)`, id, id+"@example.org", role)
	if err != nil {
		t.Fatalf("seed staff: %v", err)
	}
}

// seedProgram creates one step with one written-question assessment
// and returns the assessment and its question IDs in display order.
func (e *env) seedProgram(t *testing.T, stepNumber, questions int, randomize bool) (catalog.Assessment, []int64) {
	t.Helper()
	ctx := context.Background()
	st, err := e.cat.PutStep(ctx, catalog.Step{Number: stepNumber, Title: fmt.Sprintf("Step %d", stepNumber)})
	if err != nil {
		t.Fatalf("put step: %v", err)
	}
	asm, err := e.cat.PutAssessment(ctx, catalog.Assessment{
		StepID: st.ID, Title: fmt.Sprintf("Step %d Assessment", stepNumber), Randomize: randomize,
	})
	if err != nil {
		t.Fatalf("put assessment: %v", err)
	}
	ids := make([]int64, 0, questions)
	for i := 1; i <= questions; i++ {
		q, err := e.cat.PutQuestion(ctx, catalog.Question{
			AssessmentID: asm.ID,
			Text:         fmt.Sprintf("Question %d", i),
			Type:         catalog.TypeWritten,
			DisplayOrder: i,
		})
		if err != nil {
			t.Fatalf("put question: %v", err)
		}
		ids = append(ids, q.ID)
	}
	return asm, ids
}

func equalOrder(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartCreatesFirstAttempt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 3)
	_, qids := e.seedProgram(t, 3, 5, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 3)
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	a := res.Attempt
	if a.Number != 1 {
		t.Errorf("attempt_number = %d, want 1", a.Number)
	}
	if a.Status != attempt.StatusInProgress {
		t.Errorf("status = %s, want in_progress", a.Status)
	}
	if a.CurrentIndex != 0 {
		t.Errorf("cursor = %d, want 0", a.CurrentIndex)
	}
	if !equalOrder(a.QuestionOrder, qids) {
		t.Errorf("order = %v, want %v", a.QuestionOrder, qids)
	}
	if res.QuestionID != qids[0] {
		t.Errorf("first question = %d, want %d", res.QuestionID, qids[0])
	}
	if a.StartedAt == nil {
		t.Error("started_at not set")
	}
}

func TestStartOrResumeIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	e.seedProgram(t, 1, 4, true)

	first, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.Attempt.ID != second.Attempt.ID {
		t.Errorf("attempt id changed on resume: %d -> %d", first.Attempt.ID, second.Attempt.ID)
	}
	if !equalOrder(first.Attempt.QuestionOrder, second.Attempt.QuestionOrder) {
		t.Errorf("randomized order not stable across resume: %v vs %v",
			first.Attempt.QuestionOrder, second.Attempt.QuestionOrder)
	}

	var active int
	if err := e.db.QueryRow(
		`SELECT COUNT(*) FROM assessment_attempts WHERE participant_id='P1001' AND status IN ('in_progress','needs_revision')`,
	).Scan(&active); err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Errorf("active attempts = %d, want 1", active)
	}
}

func TestAnswerAllAndFinalize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 3)
	_, qids := e.seedProgram(t, 3, 5, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 3)
	if err != nil {
		t.Fatal(err)
	}
	next := res.QuestionID
	for i := 0; i < len(qids); i++ {
		if next != qids[i] {
			t.Fatalf("question %d: got id %d, want %d", i, next, qids[i])
		}
		ar, err := e.svc.RecordAnswer(ctx, "P1001", next, attempt.AnswerPayload{Text: fmt.Sprintf("answer %d", i)})
		if err != nil {
			t.Fatalf("RecordAnswer %d: %v", i, err)
		}
		a, err := e.store.GetAttempt(ctx, res.Attempt.ID)
		if err != nil {
			t.Fatal(err)
		}
		if a.CurrentIndex < 0 || a.CurrentIndex > len(a.QuestionOrder) {
			t.Fatalf("cursor %d out of bounds after answer %d", a.CurrentIndex, i)
		}
		if i < len(qids)-1 {
			if ar.Complete {
				t.Fatalf("complete after %d of %d answers", i+1, len(qids))
			}
			next = ar.NextQuestionID
		} else if !ar.Complete {
			t.Fatal("no complete signal after last answer")
		}
	}

	a, err := e.svc.Finalize(ctx, "P1001")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if a.Status != attempt.StatusSubmitted {
		t.Errorf("status = %s, want submitted", a.Status)
	}
	if a.SubmittedAt == nil {
		t.Error("submitted_at not set")
	}
}

func TestFinalizeRequiresAllAnswers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	e.seedProgram(t, 1, 3, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.RecordAnswer(ctx, "P1001", res.QuestionID, attempt.AnswerPayload{Text: "only one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Finalize(ctx, "P1001"); !errors.Is(err, attempt.ErrInvalidAttemptState) {
		t.Errorf("Finalize with unanswered questions: got %v, want ErrInvalidAttemptState", err)
	}
}

func TestAnswerUpsertKeepsLatest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	e.seedProgram(t, 1, 2, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatal(err)
	}
	qid := res.QuestionID
	if _, err := e.svc.RecordAnswer(ctx, "P1001", qid, attempt.AnswerPayload{Text: "first draft"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.RecordAnswer(ctx, "P1001", qid, attempt.AnswerPayload{Text: "second draft"}); err != nil {
		t.Fatal(err)
	}

	n, err := e.store.CountResponses(ctx, res.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("responses = %d, want 1", n)
	}
	resp, ok, err := e.store.GetResponse(ctx, res.Attempt.ID, qid)
	if err != nil || !ok {
		t.Fatalf("GetResponse: ok=%v err=%v", ok, err)
	}
	if resp.Text != "second draft" {
		t.Errorf("text = %q, want latest payload", resp.Text)
	}
}

func TestRevisionReusesAttempt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 2)
	e.seedStaff(t, "C100", "clinician")
	e.seedProgram(t, 2, 3, true)

	res, _ := e.svc.StartOrResume(ctx, "P1001", 2)
	order := res.Attempt.QuestionOrder
	next := res.QuestionID
	for {
		ar, err := e.svc.RecordAnswer(ctx, "P1001", next, attempt.AnswerPayload{Text: "a"})
		if err != nil {
			t.Fatal(err)
		}
		if ar.Complete {
			break
		}
		next = ar.NextQuestionID
	}
	if _, err := e.svc.Finalize(ctx, "P1001"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Review(ctx, res.Attempt.ID, "C100", attempt.DecisionNeedsRevision, "redo it"); err != nil {
		t.Fatalf("Review: %v", err)
	}

	again, err := e.svc.StartOrResume(ctx, "P1001", 2)
	if err != nil {
		t.Fatalf("restart after needs_revision: %v", err)
	}
	if again.Attempt.ID != res.Attempt.ID {
		t.Errorf("new attempt record created: %d -> %d", res.Attempt.ID, again.Attempt.ID)
	}
	if again.Attempt.Number != res.Attempt.Number {
		t.Errorf("attempt_number changed: %d -> %d", res.Attempt.Number, again.Attempt.Number)
	}
	if again.Attempt.Status != attempt.StatusInProgress {
		t.Errorf("status = %s, want in_progress", again.Attempt.Status)
	}
	if again.Attempt.CurrentIndex != 0 {
		t.Errorf("cursor = %d, want 0", again.Attempt.CurrentIndex)
	}
	if !equalOrder(again.Attempt.QuestionOrder, order) {
		t.Errorf("question order changed across revision: %v -> %v", order, again.Attempt.QuestionOrder)
	}

	// a re-answer overwrites the prior response in place
	if _, err := e.svc.RecordAnswer(ctx, "P1001", again.QuestionID, attempt.AnswerPayload{Text: "revised"}); err != nil {
		t.Fatal(err)
	}
	n, _ := e.store.CountResponses(ctx, res.Attempt.ID)
	if n != len(order) {
		t.Errorf("responses = %d, want %d (overwritten in place)", n, len(order))
	}
}

func TestApproveAdvancesStageOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 3)
	e.seedStaff(t, "C100", "clinician")
	e.seedProgram(t, 3, 2, false)

	res, _ := e.svc.StartOrResume(ctx, "P1001", 3)
	next := res.QuestionID
	for {
		ar, err := e.svc.RecordAnswer(ctx, "P1001", next, attempt.AnswerPayload{Text: "a"})
		if err != nil {
			t.Fatal(err)
		}
		if ar.Complete {
			break
		}
		next = ar.NextQuestionID
	}
	if _, err := e.svc.Finalize(ctx, "P1001"); err != nil {
		t.Fatal(err)
	}

	a, err := e.svc.Review(ctx, res.Attempt.ID, "C100", attempt.DecisionApprove, "well done")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if a.Status != attempt.StatusApproved {
		t.Errorf("status = %s, want approved", a.Status)
	}
	if a.ReviewedBy != "C100" || a.ReviewedAt == nil {
		t.Error("reviewer metadata not recorded")
	}
	p, err := e.store.GetParticipant(ctx, "P1001")
	if err != nil {
		t.Fatal(err)
	}
	if p.CurrentStep != 4 {
		t.Errorf("current_step = %d, want 4", p.CurrentStep)
	}

	// second review of the same attempt must be rejected with no effect
	if _, err := e.svc.Review(ctx, res.Attempt.ID, "C100", attempt.DecisionApprove, "again"); !errors.Is(err, attempt.ErrInvalidAttemptState) {
		t.Errorf("second review: got %v, want ErrInvalidAttemptState", err)
	}
	p, _ = e.store.GetParticipant(ctx, "P1001")
	if p.CurrentStep != 4 {
		t.Errorf("current_step moved to %d on rejected review", p.CurrentStep)
	}
}

func TestReviewRejectsUnsubmitted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	e.seedStaff(t, "C100", "clinician")
	e.seedProgram(t, 1, 2, false)

	res, _ := e.svc.StartOrResume(ctx, "P1001", 1)
	if _, err := e.svc.Review(ctx, res.Attempt.ID, "C100", attempt.DecisionApprove, ""); !errors.Is(err, attempt.ErrInvalidAttemptState) {
		t.Errorf("review of in_progress attempt: got %v, want ErrInvalidAttemptState", err)
	}
	p, _ := e.store.GetParticipant(ctx, "P1001")
	if p.CurrentStep != 1 {
		t.Errorf("current_step = %d, want 1 (no advance on rejected review)", p.CurrentStep)
	}
}

func TestSessionCacheLossRecovers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	_, qids := e.seedProgram(t, 1, 3, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatal(err)
	}
	// simulate session expiry: cached state gone, attempt persisted
	e.cache.Drop("P1001")

	a, idx, err := e.svc.ResolveCurrentPosition(ctx, "P1001", qids[0])
	if err != nil {
		t.Fatalf("resolve after cache loss: %v", err)
	}
	if a.ID != res.Attempt.ID || idx != 0 {
		t.Errorf("recovered attempt %d idx %d, want %d idx 0", a.ID, idx, res.Attempt.ID)
	}
}

func TestStaleCursorSelfHeals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	_, qids := e.seedProgram(t, 1, 4, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatal(err)
	}
	// navigate via a link to the third question: the order, not the
	// cursor, decides where the question lives
	_, idx, err := e.svc.ResolveCurrentPosition(ctx, "P1001", qids[2])
	if err != nil {
		t.Fatal(err)
	}
	if idx != 2 {
		t.Errorf("resolved index = %d, want 2", idx)
	}
	a, err := e.store.GetAttempt(ctx, res.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.CurrentIndex != 2 {
		t.Errorf("persisted cursor = %d, want 2 (healed)", a.CurrentIndex)
	}
}

func TestErrorKinds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 2)
	e.seedProgram(t, 2, 2, false)
	// step 5 exists but has no assessment
	if _, err := e.cat.PutStep(ctx, catalog.Step{Number: 5, Title: "Step 5"}); err != nil {
		t.Fatal(err)
	}
	e.seedParticipant(t, "P2002", 5)

	if _, err := e.svc.StartOrResume(ctx, "P1001", 3); !errors.Is(err, attempt.ErrOutOfSequence) {
		t.Errorf("wrong step: got %v, want ErrOutOfSequence", err)
	}
	if _, err := e.svc.StartOrResume(ctx, "P2002", 5); !errors.Is(err, attempt.ErrNotConfigured) {
		t.Errorf("step without assessment: got %v, want ErrNotConfigured", err)
	}

	res, err := e.svc.StartOrResume(ctx, "P1001", 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.svc.ResolveCurrentPosition(ctx, "P1001", 99999); !errors.Is(err, attempt.ErrQuestionNotInAttempt) {
		t.Errorf("foreign question: got %v, want ErrQuestionNotInAttempt", err)
	}
	// the failed resolve must not move the cursor
	a, _ := e.store.GetAttempt(ctx, res.Attempt.ID)
	if a.CurrentIndex != 0 {
		t.Errorf("cursor moved to %d on failed resolve", a.CurrentIndex)
	}
}

func TestMultipleChoiceValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	st, err := e.cat.PutStep(ctx, catalog.Step{Number: 1, Title: "Step 1"})
	if err != nil {
		t.Fatal(err)
	}
	asm, err := e.cat.PutAssessment(ctx, catalog.Assessment{StepID: st.ID, Title: "MC"})
	if err != nil {
		t.Fatal(err)
	}
	one, two := 1, 2
	q, err := e.cat.PutQuestion(ctx, catalog.Question{
		AssessmentID: asm.ID,
		Text:         "Pick one",
		Type:         catalog.TypeMultipleChoice,
		DisplayOrder: 1,
		Options: []catalog.Option{
			{Text: "Yes", Value: &one},
			{Text: "No", Value: &two},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatal(err)
	}
	bogus := int64(99999)
	if _, err := e.svc.RecordAnswer(ctx, "P1001", res.QuestionID, attempt.AnswerPayload{SelectedOptionID: &bogus}); err == nil {
		t.Error("foreign option accepted")
	}
	if _, err := e.svc.RecordAnswer(ctx, "P1001", res.QuestionID, attempt.AnswerPayload{}); err == nil {
		t.Error("empty answer accepted for multiple choice")
	}
	ar, err := e.svc.RecordAnswer(ctx, "P1001", res.QuestionID, attempt.AnswerPayload{SelectedOptionID: &q.Options[0].ID})
	if err != nil {
		t.Fatalf("valid option rejected: %v", err)
	}
	if !ar.Complete {
		t.Error("single-question assessment not complete after answer")
	}
	resp, ok, _ := e.store.GetResponse(ctx, res.Attempt.ID, q.ID)
	if !ok || resp.SelectedOptionID == nil || *resp.SelectedOptionID != q.Options[0].ID {
		t.Errorf("stored selection = %+v", resp)
	}
}

func TestFinalizeDuplicateCallNoOp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	e.seedProgram(t, 1, 2, false)

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatal(err)
	}
	next := res.QuestionID
	for {
		ar, err := e.svc.RecordAnswer(ctx, "P1001", next, attempt.AnswerPayload{Text: "a"})
		if err != nil {
			t.Fatal(err)
		}
		if ar.Complete {
			break
		}
		next = ar.NextQuestionID
	}
	first, err := e.svc.Finalize(ctx, "P1001")
	if err != nil {
		t.Fatal(err)
	}

	// a retried completion call must return the submitted attempt
	// unchanged, not an error
	second, err := e.svc.Finalize(ctx, "P1001")
	if err != nil {
		t.Fatalf("duplicate finalize: %v", err)
	}
	if second.ID != first.ID || second.Status != attempt.StatusSubmitted {
		t.Errorf("duplicate finalize returned id=%d status=%s, want id=%d submitted",
			second.ID, second.Status, first.ID)
	}
	if !second.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Errorf("duplicate finalize moved submitted_at: %v -> %v", first.SubmittedAt, second.SubmittedAt)
	}
}

func TestConcurrentRandomizedStarts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, qids := e.seedProgram(t, 1, 6, true)
	const participants = 16
	for i := 0; i < participants; i++ {
		e.seedParticipant(t, fmt.Sprintf("P%04d", i), 1)
	}

	var wg sync.WaitGroup
	results := make([]attempt.StartResult, participants)
	errs := make([]error, participants)
	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.svc.StartOrResume(ctx, fmt.Sprintf("P%04d", i), 1)
		}(i)
	}
	wg.Wait()

	want := map[int64]bool{}
	for _, id := range qids {
		want[id] = true
	}
	for i := 0; i < participants; i++ {
		if errs[i] != nil {
			t.Fatalf("participant %d: %v", i, errs[i])
		}
		order := results[i].Attempt.QuestionOrder
		if len(order) != len(qids) {
			t.Fatalf("participant %d: order length %d, want %d", i, len(order), len(qids))
		}
		seen := map[int64]bool{}
		for _, id := range order {
			if !want[id] || seen[id] {
				t.Fatalf("participant %d: order %v is not a permutation of %v", i, order, qids)
			}
			seen[id] = true
		}
	}
}

func TestLegacyAttemptBackfillsOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	asm, qids := e.seedProgram(t, 1, 3, false)

	// a record from before the order/cursor columns existed
	if _, err := e.db.Exec(
		`INSERT INTO assessment_attempts (participant_id, assessment_id, attempt_number, status, started_at, question_order, current_index)
		 VALUES ('P1001',$1,1,'in_progress',0,NULL,0)`, asm.ID); err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.StartOrResume(ctx, "P1001", 1)
	if err != nil {
		t.Fatalf("resume legacy attempt: %v", err)
	}
	if !equalOrder(res.Attempt.QuestionOrder, qids) {
		t.Errorf("backfilled order = %v, want %v", res.Attempt.QuestionOrder, qids)
	}
	a, err := e.store.GetAttempt(ctx, res.Attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !equalOrder(a.QuestionOrder, qids) {
		t.Error("backfilled order not persisted")
	}
}

func TestAuditTrail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "P1001", 1)
	e.seedStaff(t, "C100", "clinician")
	e.seedProgram(t, 1, 1, false)

	res, _ := e.svc.StartOrResume(ctx, "P1001", 1)
	if _, err := e.svc.RecordAnswer(ctx, "P1001", res.QuestionID, attempt.AnswerPayload{Text: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Finalize(ctx, "P1001"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Review(ctx, res.Attempt.ID, "C100", attempt.DecisionApprove, ""); err != nil {
		t.Fatal(err)
	}

	evs, err := e.events.List(ctx, fmt.Sprintf("%d", res.Attempt.ID))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{syncx.EventAttemptStarted, syncx.EventAttemptSubmitted, syncx.EventAttemptReviewed}
	if len(evs) != len(want) {
		t.Fatalf("events = %d, want %d", len(evs), len(want))
	}
	for i, typ := range want {
		if evs[i].Type != typ {
			t.Errorf("event %d = %s, want %s", i, evs[i].Type, typ)
		}
	}
}
