package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stepwise-health/stepwise/internal/attempt"
	"github.com/stepwise-health/stepwise/internal/catalog"
	"github.com/stepwise-health/stepwise/internal/rbac"
)

// GET /review/pending
func PendingReviewsHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListPending(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

type reviewView struct {
	Attempt   attempt.Attempt            `json:"attempt"`
	Questions []catalog.Question         `json:"questions"`
	Responses map[int64]attempt.Response `json:"responses"` // keyed by question
}

// GET /review/{attemptID}
// The attempt, its assessment's questions in catalog order, and the
// stored responses keyed by question.
func ReviewDetailHandler(store attempt.Store, cat catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := parseID(chi.URLParam(r, "attemptID"))
		if err != nil {
			http.Error(w, "bad attempt id", http.StatusBadRequest)
			return
		}
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			httpError(w, err)
			return
		}
		qs, err := cat.Questions(r.Context(), a.AssessmentID)
		if err != nil {
			httpError(w, err)
			return
		}
		responses, err := store.ListResponses(r.Context(), attemptID)
		if err != nil {
			httpError(w, err)
			return
		}
		byQuestion := make(map[int64]attempt.Response, len(responses))
		for _, resp := range responses {
			byQuestion[resp.QuestionID] = resp
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reviewView{Attempt: a, Questions: qs, Responses: byQuestion})
	}
}

// POST /review/{attemptID}
// Body: { "decision": "approve"|"needs_revision", "notes": "..." }
func SubmitReviewHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := parseID(chi.URLParam(r, "attemptID"))
		if err != nil {
			http.Error(w, "bad attempt id", http.StatusBadRequest)
			return
		}
		var req struct {
			Decision string `json:"decision"`
			Notes    string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		decision := attempt.Decision(req.Decision)
		if decision != attempt.DecisionApprove && decision != attempt.DecisionNeedsRevision {
			http.Error(w, "decision must be approve or needs_revision", http.StatusBadRequest)
			return
		}
		reviewer := rbac.SubjectFromContext(r.Context())
		a, err := svc.Review(r.Context(), attemptID, reviewer, decision, req.Notes)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
	}
}

// POST /review/{attemptID}/responses/{questionID}
// Body: { "comment": "...", "needs_revision": true }
func AnnotateResponseHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := parseID(chi.URLParam(r, "attemptID"))
		if err != nil {
			http.Error(w, "bad attempt id", http.StatusBadRequest)
			return
		}
		questionID, err := parseID(chi.URLParam(r, "questionID"))
		if err != nil {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		var req struct {
			Comment       string `json:"comment"`
			NeedsRevision bool   `json:"needs_revision"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := store.AnnotateResponse(r.Context(), attemptID, questionID, req.Comment, req.NeedsRevision); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
