package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/character"
	"github.com/antoniostano/ironhand/internal/config"
	"github.com/antoniostano/ironhand/internal/dice"
	"github.com/antoniostano/ironhand/internal/observability"
	"github.com/antoniostano/ironhand/internal/registry"
	"github.com/antoniostano/ironhand/internal/session"
)

// Orchestrator accepts player messages for asynchronous processing.
type Orchestrator interface {
	Submit(sessionID string, msg any) error
}

// Dependencies wires the server to the rest of the process.
type Dependencies struct {
	Sessions     session.Store
	Characters   character.Store
	Registry     *registry.Registry
	Orchestrator Orchestrator
	Roller       *dice.Roller
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	// Ready reports whether backing stores are reachable. Nil means always
	// ready.
	Ready func(ctx context.Context) error
	// Info is echoed by /healthz (storage backend, generator label).
	Info map[string]string
}

type Server struct {
	cfg          config.Config
	sessions     session.Store
	characters   character.Store
	registry     *registry.Registry
	orchestrator Orchestrator
	roller       *dice.Roller
	logger       *zap.Logger
	metrics      *observability.Metrics
	ready        func(ctx context.Context) error
	info         map[string]string
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	roller := deps.Roller
	if roller == nil {
		roller = dice.NewRoller()
	}
	return &Server{
		cfg:          cfg,
		sessions:     deps.Sessions,
		characters:   deps.Characters,
		registry:     deps.Registry,
		orchestrator: deps.Orchestrator,
		roller:       roller,
		logger:       logger,
		metrics:      deps.Metrics,
		ready:        deps.Ready,
		info:         deps.Info,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only attach from the same origin unless
				// APP_ALLOW_ANY_ORIGIN is set.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/session/start", s.handleStartSession)
	r.Get("/v1/session/ws", s.handleSessionWS)
	r.Get("/v1/session/{id}", s.handleGetSession)
	r.Put("/v1/session/{id}/state", s.handleUpdateState)

	r.Post("/v1/characters", s.handleCreateCharacter)
	r.Get("/v1/characters/{id}", s.handleGetCharacter)

	r.Post("/v1/dice/roll", s.handleRoll)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	for k, v := range s.info {
		body[k] = v
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type startSessionRequest struct {
	CharacterID string `json:"characterId"`
	OwnerID     string `json:"ownerId"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	characterID := strings.TrimSpace(req.CharacterID)
	if characterID == "" {
		characterID = character.DefaultCharacterID
	}
	if _, err := s.characters.FindByID(r.Context(), characterID); err != nil {
		if errors.Is(err, character.ErrNotFound) {
			respondError(w, http.StatusNotFound, "character_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	sess, err := s.sessions.Create(r.Context(), session.New(characterID, strings.TrimSpace(req.OwnerID)))
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.metrics.SessionEvent("created")
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err, "session_not_found")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	var state session.GameState
	if err := decodeJSON(r, &state); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	state.CurrentLocation = strings.TrimSpace(state.CurrentLocation)
	if state.CurrentLocation == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "currentLocation is required")
		return
	}
	if err := s.sessions.UpdateState(r.Context(), chi.URLParam(r, "id"), state); err != nil {
		s.respondStoreError(w, err, "session_not_found")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

type createCharacterRequest struct {
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Career  string `json:"career"`
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	sheet := character.NewCharacter(strings.TrimSpace(req.OwnerID), strings.TrimSpace(req.Name), strings.TrimSpace(req.Career))
	if err := s.characters.Create(r.Context(), sheet); err != nil {
		s.logger.Error("create character failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sheet)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.characters.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err, "character_not_found")
		return
	}
	respondJSON(w, http.StatusOK, sheet)
}

type rollRequest struct {
	Notation string `json:"notation"`
}

type rollResponse struct {
	Notation  string `json:"notation"`
	Rolls     []int  `json:"rolls"`
	Total     int    `json:"total"`
	Min       int    `json:"min"`
	Max       int    `json:"max"`
	Rendering string `json:"rendering"`
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	var req rollRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, err := s.roller.Roll(req.Notation)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_notation", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rollResponse{
		Notation:  res.Notation(),
		Rolls:     res.Rolls,
		Total:     res.Total,
		Min:       res.Expression.Min(),
		Max:       res.Expression.Max(),
		Rendering: res.Rendering,
	})
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error, notFoundCode string) {
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, character.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFoundCode, err.Error())
		return
	}
	s.logger.Error("storage request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
