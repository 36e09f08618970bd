package api

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/store"
)

type errorBody struct {
	Type  string      `json:"type"`
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// requestError reports a malformed request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// classify maps an error to its HTTP status and stable kind.
func classify(err error) (int, string) {
	var (
		reqErr       *requestError
		invalid      *game.InvalidChoiceError
		noRound      *game.NoActiveRoundError
		resolved     *game.AlreadyResolvedError
		inProgress   *game.RoundInProgressError
		insufficient *game.InsufficientContentError
		persistence  *game.PersistenceError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "invalidRequest"
	case errors.Is(err, service.ErrInvalidSessionID):
		return http.StatusBadRequest, "invalidRequest"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "invalidChoice"
	case errors.As(err, &noRound):
		return http.StatusConflict, "noActiveRound"
	case errors.As(err, &resolved):
		return http.StatusConflict, "alreadyResolved"
	case errors.As(err, &inProgress):
		return http.StatusConflict, "roundInProgress"
	case errors.As(err, &insufficient):
		return http.StatusServiceUnavailable, "insufficientContent"
	case errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict, "conflict"
	case errors.As(err, &persistence):
		return http.StatusInternalServerError, "persistence"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "kind", kind, "request_id", chimw.GetReqID(r.Context()), "error", err)
		if kind == "internal" || kind == "persistence" {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Type: "error", Error: errorDetail{Kind: kind, Message: msg}})
}
