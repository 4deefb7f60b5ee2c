// Package control serves the interactive controls of a running executor
// over HTTP: state inspection, pause/resume/step/stop, breakpoints, retry
// budget resets, health and metrics.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/graph"
)

// Controller is the part of the executor the server drives.
type Controller interface {
	Graph() *graph.Graph
	State() executor.State
	Pause() error
	Resume() error
	Step() error
	Stop() error
	SetBreakpoint(id string, on bool) error
	RetryNode(id string) error
}

var _ Controller = (*executor.Executor)(nil)

// Server is the HTTP control surface.
type Server struct {
	ctrl    Controller
	metrics http.Handler
	router  *mux.Router
	ctx     context.Context
}

// New creates a Server. metrics may be nil, in which case /metrics is not
// served. ctx carries the logger used for request logs.
func New(ctx context.Context, ctrl Controller, metrics http.Handler) *Server {
	s := &Server{ctrl: ctrl, metrics: metrics, ctx: ctx}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/state", s.state).Methods(http.MethodGet)

	r.HandleFunc("/pause", s.transition(s.ctrl.Pause)).Methods(http.MethodPost)
	r.HandleFunc("/resume", s.transition(s.ctrl.Resume)).Methods(http.MethodPost)
	r.HandleFunc("/step", s.transition(s.ctrl.Step)).Methods(http.MethodPost)
	r.HandleFunc("/stop", s.transition(s.ctrl.Stop)).Methods(http.MethodPost)

	nodes := r.PathPrefix("/nodes/{id}").Subrouter()
	nodes.HandleFunc("/breakpoint", s.breakpoint(true)).Methods(http.MethodPut)
	nodes.HandleFunc("/breakpoint", s.breakpoint(false)).Methods(http.MethodDelete)
	nodes.HandleFunc("/retry", s.retry).Methods(http.MethodPost)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	r.Use(s.logging)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ctxlog.FromContext(ctx).Info("Control server listening.", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ctxlog.FromContext(s.ctx).Debug("Control request served.", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

type nodeView struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	State      string `json:"state"`
	Breakpoint bool   `json:"breakpoint,omitempty"`
	Error      string `json:"error,omitempty"`
}

type stateView struct {
	Workflow string     `json:"workflow"`
	State    string     `json:"state"`
	Nodes    []nodeView `json:"nodes,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	g := s.ctrl.Graph()
	view := stateView{Workflow: g.Name(), State: s.ctrl.State().String()}
	for _, n := range g.Nodes() {
		nv := nodeView{ID: n.ID, Kind: n.Kind.String(), State: n.State().String(), Breakpoint: n.Breakpoint()}
		if err := n.Err(); err != nil {
			nv.Error = err.Error()
		}
		view.Nodes = append(view.Nodes, nv)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) transition(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := fn(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, stateView{Workflow: s.ctrl.Graph().Name(), State: s.ctrl.State().String()})
	}
}

func (s *Server) breakpoint(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.ctrl.SetBreakpoint(mux.Vars(r)["id"], on); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.RetryNode(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, executor.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, executor.ErrUnknownNode):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
