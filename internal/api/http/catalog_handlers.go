package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stepwise-health/stepwise/internal/catalog"
)

// GET /catalog/steps
func ListStepsHandler(cat catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		steps, err := cat.ListSteps(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(steps)
	}
}

// POST /catalog/steps (admin, deploy-time seeding)
// maxSteps is the deployment's program length; steps beyond it are
// unreachable (the stage pointer only advances past the last step when
// the program is finished) and rejected up front.
func PutStepHandler(cat catalog.Store, maxSteps int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st catalog.Step
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if st.Number < 1 || st.Title == "" {
			http.Error(w, "step_number and title required", http.StatusBadRequest)
			return
		}
		if st.Number > maxSteps {
			http.Error(w, fmt.Sprintf("step_number exceeds program length %d", maxSteps), http.StatusBadRequest)
			return
		}
		out, err := cat.PutStep(r.Context(), st)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// POST /catalog/assessments
func PutAssessmentHandler(cat catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a catalog.Assessment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if a.StepID == 0 || a.Title == "" {
			http.Error(w, "step_id and title required", http.StatusBadRequest)
			return
		}
		out, err := cat.PutAssessment(r.Context(), a)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// POST /catalog/questions
func PutQuestionHandler(cat catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q catalog.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if q.AssessmentID == 0 || q.Text == "" {
			http.Error(w, "assessment_id and text required", http.StatusBadRequest)
			return
		}
		switch q.Type {
		case catalog.TypeMultipleChoice:
			if len(q.Options) < 2 {
				http.Error(w, "multiple_choice requires at least two options", http.StatusBadRequest)
				return
			}
		case catalog.TypeWritten:
			if len(q.Options) != 0 {
				http.Error(w, "written questions take no options", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "type must be multiple_choice or written", http.StatusBadRequest)
			return
		}
		out, err := cat.PutQuestion(r.Context(), q)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
