// Package httpapi implements the Wire Surface's HTTP endpoints: ingest
// submission, job inspection, readings save/fetch, hybrid query, and
// liveness/readiness probes.
package httpapi

import (
	"net/http"
	"time"

	"ragcore/internal/model"
	"ragcore/internal/objectstore"
	"ragcore/internal/queue"
	"ragcore/internal/readings"
	"ragcore/internal/retrieve"
	"ragcore/internal/validate"
)

// Server exposes the RAG ingestion/retrieval wire surface over HTTP.
type Server struct {
	Queue       *queue.Queue
	Retrieval   *retrieve.Engine
	Readings    *readings.Service
	Validator   *validate.Validator
	ObjectStore objectstore.ObjectStore // nil disables /ingest/upload
	DedupeTTL   time.Duration

	mux *http.ServeMux
}

// NewServer wires the dependencies into routed handlers.
func NewServer(q *queue.Queue, retrieval *retrieve.Engine, readingsSvc *readings.Service, validator *validate.Validator, objStore objectstore.ObjectStore) *Server {
	s := &Server{
		Queue:       q,
		Retrieval:   retrieval,
		Readings:    readingsSvc,
		Validator:   validator,
		ObjectStore: objStore,
		DedupeTTL:   24 * time.Hour,
		mux:         http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /ingest/web", s.handleIngestWeb)
	s.mux.HandleFunc("POST /ingest/drive", s.handleIngestDrive)
	s.mux.HandleFunc("POST /ingest/upload", s.handleIngestUpload)
	s.mux.HandleFunc("GET /ingest/jobs/{job_id}", s.handleGetJob)

	s.mux.HandleFunc("POST /readings/save", s.handleReadingsSave)
	s.mux.HandleFunc("GET /readings", s.handleReadingsList)
	s.mux.HandleFunc("GET /readings/{id}", s.handleReadingsGet)

	s.mux.HandleFunc("POST /query", s.handleQuery)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.Validator == nil {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	result := s.Validator.Check(r.Context())
	if !result.OK {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "findings": result.Findings})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "findings": result.Findings})
}

// sourceFingerprint derives a job-dedupe key from the parts of a Source
// Descriptor that identify "the same submission", independent of any
// embedded crawl/chunker options.
func sourceFingerprint(d model.SourceDescriptor) string {
	return string(d.Kind) + "|" + d.Tenant + "|" + d.SourceGroup + "|" + d.Locator
}
