// Package server implements the DAP/2 HTTP surface: the /data index, and
// the .das/.dds/.dods/raw routes for each registered dataset, routed with
// gorilla/mux per the original front end's four-endpoint shape.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/scigolib/dapd/aggregate"
	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/constraint"
	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/dap2/dods"
	"github.com/scigolib/dapd/dap2/hyperslab"
	"github.com/scigolib/dapd/internal/catalog"
)

// Server wires a Registry into a gorilla/mux router implementing spec §6.
type Server struct {
	registry *Registry
	log      *logrus.Logger
	router   *mux.Router
}

// New builds a Server over registry. log may be nil, in which case a
// logger with output discarded is used.
func New(registry *Registry, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	s := &Server{registry: registry, log: log}
	s.router = mux.NewRouter()
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/data", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/data/{route:.+}.das", s.handleDAS).Methods(http.MethodGet)
	s.router.HandleFunc("/data/{route:.+}.dds", s.handleDDS).Methods(http.MethodGet)
	s.router.HandleFunc("/data/{route:.+}.dods", s.handleDODS).Methods(http.MethodGet)
	s.router.HandleFunc("/data/{route:.+}", s.handleRaw).Methods(http.MethodGet)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	routes := s.registry.Routes()
	entries := make([]catalog.Entry, len(routes))
	for i, r := range routes {
		entries[i] = catalog.Entry{Route: r}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, catalog.Render(entries))
}

func (s *Server) handleDAS(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	servable, ok := s.registry.Lookup(route)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, servable.Das().Render())
}

func (s *Server) handleDDS(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	servable, ok := s.registry.Lookup(route)
	if !ok {
		http.NotFound(w, r)
		return
	}

	projected, err := s.project(servable, r.URL.RawQuery)
	if err != nil {
		s.writeError(w, route, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, projected.Render())
}

func (s *Server) handleDODS(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	servable, ok := s.registry.Lookup(route)
	if !ok {
		http.NotFound(w, r)
		return
	}

	projected, err := s.project(servable, r.URL.RawQuery)
	if err != nil {
		s.writeError(w, route, err)
		return
	}

	asm := dods.New(r.Context(), projected, servable)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", dods.ContentLength(projected)))
	w.WriteHeader(http.StatusOK)

	for asm.Next() {
		if _, err := w.Write(asm.Bytes()); err != nil {
			s.log.WithError(err).WithField("route", route).Warn("client disconnected mid-stream")
			return
		}
	}
	if err := asm.Err(); err != nil {
		s.log.WithError(err).WithField("route", route).Error("dods stream failed")
	}
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	stream, size, ok, err := s.registry.Raw(route)
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	if _, err := io.Copy(w, stream); err != nil {
		s.log.WithError(err).WithField("route", route).Warn("raw download interrupted")
	}
}

func (s *Server) project(servable Servable, rawQuery string) (*dds.Projected, error) {
	items, err := constraint.Parse(rawQuery)
	if err != nil {
		return nil, err
	}
	return servable.Dds().Project(items)
}

// writeError maps the error taxonomy of spec.md §7 onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, route string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hyperslab.ErrBadHyperslab), errors.Is(err, constraint.ErrBadConstraint):
		status = http.StatusBadRequest
	case errors.Is(err, dds.ErrUnknownVariable), errors.Is(err, dds.ErrSlabOutOfBounds):
		status = http.StatusNotFound
	case errors.Is(err, dap2.ErrUnsupportedType):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, aggregate.ErrMemberChanged):
		status = http.StatusServiceUnavailable
	}

	s.log.WithError(err).WithField("route", route).Warn("request failed")
	http.Error(w, err.Error(), status)
}
