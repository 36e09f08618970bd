// Package api serves the game operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/smith3v/lexicon-clash/pkg/export"
	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/service"
)

// Engine is the subset of *service.Engine the HTTP layer drives.
type Engine interface {
	InitSession(ctx context.Context, id string, opts service.InitOptions) (*service.InitResult, error)
	StartRound(ctx context.Context, id string) (*service.RoundStartedResult, error)
	SubmitChoice(ctx context.Context, id string, choice int) (*service.RoundResolvedResult, error)
	ResetSession(ctx context.Context, id string) (*service.ResetResult, error)
	Stakes(ctx context.Context, id string) (*service.StakesResult, error)
	Journal(ctx context.Context, id string) ([]game.JournalEntry, error)
}

type Options struct {
	RequestTimeout time.Duration
	// CORSOrigin enables credentialed CORS for one origin when set.
	CORSOrigin string
	Now        func() time.Time
}

// Server bundles the router and the engine it calls.
type Server struct {
	r        *chi.Mux
	engine   Engine
	validate *validator.Validate
	now      func() time.Time
}

const maxBodyBytes = 4 << 10

func New(engine Engine, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		r:        chi.NewRouter(),
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      opts.Now,
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(opts.RequestTimeout))
	s.r.Use(jsonContentType)
	if opts.CORSOrigin != "" {
		s.r.Use(cors(opts.CORSOrigin))
	}

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
		r.Use(s.sessionID)
		r.Get("/", s.handleInit)
		r.Post("/rounds", s.handleStartRound)
		r.Post("/choice", s.handleChoice)
		r.Get("/stakes", s.handleStakes)
		r.Post("/reset", s.handleReset)
		r.Get("/journal.csv", s.handleJournal)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Type: "error", Error: errorDetail{Kind: "notFound", Message: "no route for " + r.URL.Path}})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Type: "error", Error: errorDetail{Kind: "methodNotAllowed", Message: r.Method + " is not allowed here"}})
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the router for tests.
func (s *Server) Router() chi.Router { return s.r }

type ctxSessionKey struct{}

// sessionID validates the {sessionID} path segment and stores it in the context.
func (s *Server) sessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := s.validate.Var(id, "required,max=128,printascii"); err != nil {
			writeError(w, r, &requestError{msg: "session id must be 1-128 printable characters"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSessionKey{}, id)))
	})
}

func sessionFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxSessionKey{}).(string)
	return id
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var opts service.InitOptions
	if raw := r.URL.Query().Get("reset"); raw != "" {
		fresh, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, &requestError{msg: "reset must be a boolean"})
			return
		}
		opts.Fresh = fresh
	}
	res, err := s.engine.InitSession(r.Context(), sessionFrom(r), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Type: res.Type, State: res.State, Session: newSessionView(res.Session)})
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.StartRound(r.Context(), sessionFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, roundStartedResponse{
		Type:   res.Type,
		Round:  newRoundView(res.Round),
		Stakes: res.Stakes,
		Stats:  res.Stats,
	})
}

type choiceRequest struct {
	Choice *int `json:"choice" validate:"required"`
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, &requestError{msg: "body must be JSON like {\"choice\":0}"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, r, &requestError{msg: "choice is required"})
		return
	}
	res, err := s.engine.SubmitChoice(r.Context(), sessionFrom(r), *req.Choice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roundResolvedResponse{Type: res.Type, Round: newRoundView(res.Round), Stats: res.Stats})
}

func (s *Server) handleStakes(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Stakes(r.Context(), sessionFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ResetSession(r.Context(), sessionFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Type: res.Type, State: res.State, Session: newSessionView(res.Session)})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Journal(r.Context(), sessionFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := export.BuildJournalCSV(entries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.ExportFilename(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("failed to write journal export", "session", sessionFrom(r), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}
