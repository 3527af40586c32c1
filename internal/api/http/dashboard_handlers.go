package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stepwise-health/stepwise/internal/attempt"
	"github.com/stepwise-health/stepwise/internal/catalog"
	"github.com/stepwise-health/stepwise/internal/rbac"
)

type historyEntry struct {
	Step    catalog.Step    `json:"step"`
	Attempt attempt.Attempt `json:"attempt"`
}

type dashboardView struct {
	Participant      attempt.Participant `json:"participant"`
	CurrentStep      *catalog.Step       `json:"current_step,omitempty"`
	CurrentAttempt   *attempt.Attempt    `json:"current_attempt,omitempty"`
	History          []historyEntry      `json:"history"`
	UnviewedApproval *historyEntry       `json:"unviewed_approval,omitempty"`
}

// GET /dashboard
// Current step and attempt, plus the reviewed history for completed
// steps and any approval the participant has not acknowledged yet.
func DashboardHandler(store attempt.Store, cat catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sub := rbac.SubjectFromContext(ctx)
		p, err := store.GetParticipant(ctx, sub)
		if err != nil {
			httpError(w, err)
			return
		}
		view := dashboardView{Participant: p, History: []historyEntry{}}

		if step, err := cat.StepByNumber(ctx, p.CurrentStep); err == nil {
			view.CurrentStep = &step
			if asm, err := cat.AssessmentForStep(ctx, step.ID); err == nil {
				if a, err := store.LatestAttempt(ctx, sub, asm.ID); err == nil {
					view.CurrentAttempt = &a
				} else if !errors.Is(err, attempt.ErrAttemptNotFound) {
					httpError(w, err)
					return
				}
			}
		} else if !errors.Is(err, catalog.ErrNotFound) {
			httpError(w, err)
			return
		}

		for n := 1; n < p.CurrentStep; n++ {
			step, err := cat.StepByNumber(ctx, n)
			if err != nil {
				continue
			}
			asm, err := cat.AssessmentForStep(ctx, step.ID)
			if err != nil {
				continue
			}
			a, err := store.LatestAttempt(ctx, sub, asm.ID)
			if err != nil {
				continue
			}
			if a.Status != attempt.StatusApproved && a.Status != attempt.StatusNeedsRevision {
				continue
			}
			entry := historyEntry{Step: step, Attempt: a}
			view.History = append(view.History, entry)
			if a.Status == attempt.StatusApproved && !a.ApprovalViewed && view.UnviewedApproval == nil {
				view.UnviewedApproval = &entry
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}
