package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"github.com/zoobzio/profilez/store"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxUploadSize bounds one uploaded trace.
const MaxUploadSize = 64 << 20

// TraceStore is what the server needs from a store.
type TraceStore interface {
	Put(ctx context.Context, route, contentType string, data []byte) (string, error)
	Get(ctx context.Context, id string) (*store.Record, error)
	List(ctx context.Context) ([]store.Meta, error)
}

// Server receives uploaded traces and serves them back.
//
//	POST /traces/{route}  store the request body, respond {"id": ...}
//	GET  /traces          list stored trace metadata
//	GET  /traces/{id}     fetch a stored trace body
type Server struct {
	store  TraceStore
	logger *zap.Logger
	router *mux.Router
}

// NewServer creates a server backed by traces.
func NewServer(traces TraceStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: traces, logger: logger, router: mux.NewRouter()}
	s.router.HandleFunc("/traces", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/traces/{route}", s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc("/traces/{id}", s.handleGet).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadSize+1))
	if err != nil {
		s.fail(w, http.StatusBadRequest, errors.Annotate(err, "reading upload"))
		return
	}
	if len(data) > MaxUploadSize {
		s.fail(w, http.StatusRequestEntityTooLarge, errors.New("trace too large"))
		return
	}
	if len(data) == 0 {
		s.fail(w, http.StatusBadRequest, errors.New("empty trace"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	id, err := s.store.Put(r.Context(), route, contentType, data)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("trace received",
		zap.String("id", id),
		zap.String("route", route),
		zap.Int("bytes", len(data)))
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Data)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, metas)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
