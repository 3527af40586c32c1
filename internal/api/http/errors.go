package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/stepwise-health/stepwise/internal/attempt"
	"github.com/stepwise-health/stepwise/internal/catalog"
)

// httpError maps core sentinels onto statuses. Anything unrecognized
// is a transient persistence failure: the write rolled back and the
// caller may retry.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attempt.ErrInvalidAnswer):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, attempt.ErrOutOfSequence),
		errors.Is(err, attempt.ErrQuestionNotInAttempt),
		errors.Is(err, attempt.ErrInvalidAttemptState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, attempt.ErrNotConfigured),
		errors.Is(err, attempt.ErrAttemptNotFound),
		errors.Is(err, attempt.ErrParticipantNotFound),
		errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
