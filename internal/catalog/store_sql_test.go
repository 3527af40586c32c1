package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stepwise-health/stepwise/internal/catalog"
	"github.com/stepwise-health/stepwise/internal/db"
)

func newStore(t *testing.T) (*catalog.SQLStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn, err := dbh.Conn(ctx)
	if err != nil {
		t.Fatalf("pin conn: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		dbh.Close()
	})
	return catalog.NewSQLStore(dbh), dbh
}

func TestStepRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	st, err := s.PutStep(ctx, catalog.Step{Number: 4, Title: "Step 4", Description: "Inventory"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.StepByNumber(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != st.ID || got.Title != "Step 4" || got.Description != "Inventory" {
		t.Errorf("got %+v", got)
	}

	// re-put with the same number updates in place
	if _, err := s.PutStep(ctx, catalog.Step{Number: 4, Title: "Step Four"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.StepByNumber(ctx, 4)
	if got.ID != st.ID || got.Title != "Step Four" {
		t.Errorf("upsert got %+v, want same id %d", got, st.ID)
	}

	if _, err := s.StepByNumber(ctx, 99); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("missing step: got %v, want ErrNotFound", err)
	}
}

func TestAssessmentForStep(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	st, err := s.PutStep(ctx, catalog.Step{Number: 1, Title: "Step 1"})
	if err != nil {
		t.Fatal(err)
	}
	// permitted during setup: a step with no assessment yet
	if _, err := s.AssessmentForStep(ctx, st.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("unconfigured step: got %v, want ErrNotFound", err)
	}

	asm, err := s.PutAssessment(ctx, catalog.Assessment{StepID: st.ID, Title: "Honesty", Randomize: true})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.AssessmentForStep(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != asm.ID || !got.Randomize {
		t.Errorf("got %+v", got)
	}
}

func TestQuestionsOrderedWithOptions(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	st, _ := s.PutStep(ctx, catalog.Step{Number: 1, Title: "Step 1"})
	asm, _ := s.PutAssessment(ctx, catalog.Assessment{StepID: st.ID, Title: "A"})

	ten := 10
	// inserted out of display order on purpose
	if _, err := s.PutQuestion(ctx, catalog.Question{
		AssessmentID: asm.ID, Text: "Second", Type: catalog.TypeWritten, DisplayOrder: 2,
	}); err != nil {
		t.Fatal(err)
	}
	mc, err := s.PutQuestion(ctx, catalog.Question{
		AssessmentID: asm.ID, Text: "First", Type: catalog.TypeMultipleChoice, DisplayOrder: 1,
		Options: []catalog.Option{{Text: "Yes", Value: &ten}, {Text: "No"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	qs, err := s.Questions(ctx, asm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 || qs[0].Text != "First" || qs[1].Text != "Second" {
		t.Fatalf("order wrong: %+v", qs)
	}
	if len(qs[0].Options) != 2 {
		t.Fatalf("options = %d, want 2", len(qs[0].Options))
	}
	if qs[0].Options[0].Value == nil || *qs[0].Options[0].Value != 10 {
		t.Errorf("option value = %v, want 10", qs[0].Options[0].Value)
	}
	if qs[0].Options[1].Value != nil {
		t.Errorf("absent option value = %v, want nil", qs[0].Options[1].Value)
	}

	one, err := s.GetQuestion(ctx, mc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if one.Type != catalog.TypeMultipleChoice || len(one.Options) != 2 {
		t.Errorf("GetQuestion: %+v", one)
	}
}
