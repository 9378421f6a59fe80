// Package web provides an HTTP status server for the irrigation controller.
package web

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/irrigation-controller/internal/status"
)

// FrameSource encodes the last committed display frame as PNG.
type FrameSource interface {
	WritePNG(w io.Writer) error
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	tracker    *status.Tracker
	frames     FrameSource
}

// New creates a Server that reads state from the given tracker.
// frames and metrics may be nil; their routes are then not registered.
func New(addr string, tracker *status.Tracker, frames FrameSource, metrics http.Handler) *Server {
	s := &Server{tracker: tracker, frames: frames}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	if frames != nil {
		r.HandleFunc("/display.png", s.handleDisplay).Methods(http.MethodGet)
	}
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	s.router = r

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingHandler(log.Writer(), r),
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, s.frames != nil); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.frames.WritePNG(&buf); err != nil {
		http.Error(w, "display unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
