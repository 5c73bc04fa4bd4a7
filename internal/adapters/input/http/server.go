// Package http serves the admin API of the bridge.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	bridge  ports.BridgePort
	setup   ports.SetupPort
	entries ports.EntriesPort
	host    ports.EntityHost
	metrics http.Handler
	logger  zerolog.Logger
	hub     *wsHub
}

// NewServer wires the API. metrics may be nil.
func NewServer(bridge ports.BridgePort, setup ports.SetupPort, entries ports.EntriesPort, host ports.EntityHost, metrics http.Handler, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "http").Logger()
	return &Server{
		bridge:  bridge,
		setup:   setup,
		entries: entries,
		host:    host,
		metrics: metrics,
		logger:  logger,
		hub:     newWSHub(logger),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/entities", s.handleGetEntities)
		r.Get("/entities/{id}", s.handleGetEntity)
		r.Put("/entities/{id}/state", s.handleSetEntityState)
		r.Post("/inventory/refresh", s.handleRefreshInventory)
		r.Post("/setup", s.handleSetup)
		r.Get("/entries", s.handleGetEntries)
		r.Delete("/entries/{serial}", s.handleDeleteEntry)
		r.Get("/ws", s.handleWebSocket)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("admin api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// BroadcastState pushes an entity state to websocket clients.
func (s *Server) BroadcastState(e ports.Entity) {
	s.hub.broadcast(e.State())
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		ev := s.logger.Debug()
		if ww.Status() >= 500 {
			ev = s.logger.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"entities": len(s.bridge.Entities()),
	})
}

func (s *Server) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.bridge.Entities()
	states := make([]model.EntityState, 0, len(entities))
	for _, e := range entities {
		states = append(states, e.State())
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := s.bridge.Entity(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e.State())
}

type stateRequest struct {
	On         bool `json:"on"`
	Brightness *int `json:"brightness,omitempty"`
}

func (s *Server) handleSetEntityState(w http.ResponseWriter, r *http.Request) {
	e, err := s.bridge.Entity(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if req.On {
		var b *uint8
		if req.Brightness != nil {
			if *req.Brightness < 0 || *req.Brightness > 255 {
				writeError(w, http.StatusBadRequest, "brightness must be between 0 and 255")
				return
			}
			v := uint8(*req.Brightness)
			b = &v
		}
		err = e.TurnOn(ctx, b)
	} else {
		err = e.TurnOff(ctx)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := e.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Str("entity", e.UniqueID()).Msg("refresh after command failed")
	} else if err := s.host.PublishState(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("entity", e.UniqueID()).Msg("publishing state")
	}
	writeJSON(w, http.StatusOK, e.State())
}

func (s *Server) handleRefreshInventory(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.RefreshInventory(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"entities": len(s.bridge.Entities())})
}

type setupRequest struct {
	Host     string `json:"host"`
	Location string `json:"location"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type setupResponse struct {
	Serial string `json:"serial"`
	Title  string `json:"title"`
	Host   string `json:"host"`
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Host == "" && req.Location == "" {
		writeError(w, http.StatusBadRequest, "host or location is required")
		return
	}

	in := model.SetupInput{Host: req.Host, Username: req.Username, Password: req.Password}
	var res model.SetupResult
	if req.Location != "" {
		res = s.setup.SetupDiscovered(r.Context(), req.Location, in)
	} else {
		res = s.setup.SetupUser(r.Context(), in)
	}

	switch {
	case res.Abort != "":
		writeError(w, http.StatusConflict, res.Abort)
	case res.Error != "":
		writeError(w, setupStatus(res.Error), res.Error)
	case res.Entry != nil:
		writeJSON(w, http.StatusCreated, setupResponse{Serial: res.Entry.Serial, Title: res.Entry.Title, Host: res.Entry.Host})
	default:
		writeError(w, http.StatusInternalServerError, model.SetupErrorUnknown)
	}
}

func (s *Server) handleGetEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res := make([]setupResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, setupResponse{Serial: e.Serial, Title: e.Title, Host: e.Host})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	err := s.entries.Remove(r.Context(), chi.URLParam(r, "serial"))
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func setupStatus(code string) int {
	switch code {
	case model.SetupErrorInvalidAuth:
		return http.StatusUnauthorized
	case model.SetupErrorCannotConnect:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
