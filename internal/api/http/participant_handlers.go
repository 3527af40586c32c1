package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stepwise-health/stepwise/internal/attempt"
	"github.com/stepwise-health/stepwise/internal/catalog"
	"github.com/stepwise-health/stepwise/internal/rbac"
)

// POST /assessments/{stepNumber}/start
func StartAssessmentHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stepNumber, err := strconv.Atoi(chi.URLParam(r, "stepNumber"))
		if err != nil {
			http.Error(w, "bad step number", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		res, err := svc.StartOrResume(r.Context(), sub, stepNumber)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

type questionView struct {
	Question catalog.Question  `json:"question"`
	Position int               `json:"position"` // 1-based
	Total    int               `json:"total"`
	Existing *attempt.Response `json:"existing_response,omitempty"`
}

// GET /questions/{questionID}
// Resolves the question against the active attempt (healing a stale
// cursor) and pre-populates any previously stored answer.
func ShowQuestionHandler(svc *attempt.Service, store attempt.Store, cat catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := parseID(chi.URLParam(r, "questionID"))
		if err != nil {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		a, idx, err := svc.ResolveCurrentPosition(r.Context(), sub, questionID)
		if err != nil {
			httpError(w, err)
			return
		}
		q, err := cat.GetQuestion(r.Context(), questionID)
		if err != nil {
			httpError(w, err)
			return
		}
		view := questionView{Question: q, Position: idx + 1, Total: len(a.QuestionOrder)}
		if resp, ok, err := store.GetResponse(r.Context(), a.ID, questionID); err != nil {
			httpError(w, err)
			return
		} else if ok {
			view.Existing = &resp
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

// POST /questions/{questionID}
// Body: { "response_text": "..." } or { "selected_option_id": 7 }
func AnswerQuestionHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := parseID(chi.URLParam(r, "questionID"))
		if err != nil {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		var req struct {
			ResponseText     string `json:"response_text"`
			SelectedOptionID *int64 `json:"selected_option_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		res, err := svc.RecordAnswer(r.Context(), sub, questionID, attempt.AnswerPayload{
			Text:             req.ResponseText,
			SelectedOptionID: req.SelectedOptionID,
		})
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

// POST /assessments/complete
func CompleteAssessmentHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.Finalize(r.Context(), sub)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
	}
}

// POST /attempts/{attemptID}/dismiss-approval
func DismissApprovalHandler(store attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := parseID(chi.URLParam(r, "attemptID"))
		if err != nil {
			http.Error(w, "bad attempt id", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			httpError(w, err)
			return
		}
		if a.ParticipantID != sub {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := store.SetApprovalViewed(r.Context(), attemptID); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
