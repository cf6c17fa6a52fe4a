// Package httpapi exposes the manipulation engine as an HTTP service, so
// build pipelines can rewrite a manifest without installing the CLI.
//
// The service is unauthenticated by design; deploy it behind build
// infrastructure, not on the public internet.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/packsmith/packsmith/pkg/errors"
	"github.com/packsmith/packsmith/pkg/manip"
	"github.com/packsmith/packsmith/pkg/npm"
)

// Server handles manipulation requests.
type Server struct {
	logger *log.Logger
}

// NewHandler creates the HTTP handler. Pass nil to discard log output.
func NewHandler(logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/manipulate", s.handleManipulate)
	return r
}

// manipulateRequest is the POST /api/manipulate body.
type manipulateRequest struct {
	// Manifest is the package.json document to manipulate.
	Manifest json.RawMessage `json:"manifest"`

	// AvailableVersions is the pool of already-published versions for
	// this package. The service does not query the registry itself.
	AvailableVersions []string `json:"available_versions"`

	Config manipulateConfig `json:"config"`
}

type manipulateConfig struct {
	Suffix          string            `json:"suffix"`
	Padding         int               `json:"padding"`
	SuffixOverride  string            `json:"suffix_override"`
	VersionOverride string            `json:"version_override"`
	Overrides       map[string]string `json:"overrides"`
	DevOverrides    map[string]string `json:"dev_overrides"`
}

// manipulateResponse is the POST /api/manipulate response.
type manipulateResponse struct {
	Manifest json.RawMessage `json:"manifest"`
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Changed  bool            `json:"changed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleManipulate(w http.ResponseWriter, r *http.Request) {
	var req manipulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Manifest) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "manifest is required"})
		return
	}

	pkg, err := npm.NewMemPackage(req.Manifest)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errors.UserMessage(err)})
		return
	}

	name, err := pkg.Name()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errors.UserMessage(err)})
		return
	}

	pool := npm.NewVersionPool()
	pool.Add(name, req.AvailableVersions)

	gen := &npm.SuffixGenerator{
		Suffix:          req.Config.Suffix,
		SuffixPadding:   req.Config.Padding,
		SuffixOverride:  req.Config.SuffixOverride,
		VersionOverride: req.Config.VersionOverride,
	}

	manipulators := []manip.Manipulator{
		npm.NewDependencyManipulator(req.Config.Overrides, req.Config.DevOverrides),
		npm.NewVersionManipulator(gen, pool),
	}

	mgr := manip.NewManager(s.logger)
	changed, err := mgr.Apply(r.Context(), []manip.Project{pkg}, manipulators)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrCodeSuffixOverflow) || errors.Is(err, errors.ErrCodeDependencyCycle) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errorResponse{Error: errors.UserMessage(err)})
		return
	}

	manifest, err := pkg.Manifest()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errors.UserMessage(err)})
		return
	}
	version, err := pkg.Version()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errors.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, manipulateResponse{
		Manifest: manifest,
		Name:     name,
		Version:  version,
		Changed:  len(changed) > 0,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
