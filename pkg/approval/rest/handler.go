// Package rest exposes a predictor over HTTP: the test page, health and
// model introspection endpoints, and the prediction API.
package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/dto"
)

// maxBodyBytes bounds a prediction request body.
const maxBodyBytes = 1 << 20

// Handler serves one approval service.
type Handler struct {
	svc       *approval.Predictor
	pageFile  string
	staticDir string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithStaticDir sets the directory the test page is served from.
func WithStaticDir(dir string) Option {
	return func(h *Handler) { h.staticDir = dir }
}

// WithLogger sets the handler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates the HTTP handler. pageFile is the test page name under
// the static directory, for example "loan_prediction.html".
func NewHandler(svc *approval.Predictor, pageFile string, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		pageFile:  pageFile,
		staticDir: "static",
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes attaches the service routes to the given mux. Unknown
// routes answer with a JSON 404 listing the endpoints.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	if h.pageFile != "" {
		mux.HandleFunc("GET /"+h.pageFile, h.index)
	}
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /debug/models", h.debugModels)
	mux.HandleFunc("POST /api/predict", h.predict)
	mux.HandleFunc("/", h.notFound)
}

func (h *Handler) pagePath() string {
	return filepath.Join(h.staticDir, h.pageFile)
}

func (h *Handler) pageExists() bool {
	info, err := os.Stat(h.pagePath())
	return err == nil && info.Mode().IsRegular()
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	reg := h.svc.Pipeline().Registry()

	expected := len(h.svc.Profile().Schema.Names())
	if f := reg.ModelFeatures(); f.Known() {
		expected = f.Len()
	}

	writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:           "healthy",
		Service:          h.svc.Profile().Service,
		ModelLoaded:      reg.ModelLoaded(),
		ScalerLoaded:     reg.ScalerLoaded(),
		HTMLFileExists:   h.pageExists(),
		StaticFolder:     h.staticDir,
		FeaturesExpected: expected,
		Timestamp:        h.now(),
	})
}

func (h *Handler) debugModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.ModelStatus(h.svc, h.now()))
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error(err.Error(), time.Time{}))
		return
	}

	pred, err := h.svc.Predict(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.FromPrediction(pred))
	case approval.IsClientError(err):
		h.logger.Info("prediction request rejected",
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeJSON(w, http.StatusBadRequest, dto.Error(err.Error(), time.Time{}))
	default:
		h.logger.Error("prediction failed",
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, dto.Error(err.Error(), h.now()))
	}
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.NotFoundResponse{
		Status:  dto.StatusError,
		Message: "Endpoint not found",
		AvailableEndpoints: map[string][]string{
			"GET":  {"/", "/health", "/debug/models", "/" + h.pageFile, "/metrics"},
			"POST": {"/api/predict"},
		},
	})
}

var errNoData = errors.New("No data provided")

// decodeBody reads a JSON object. Numbers are kept as json.Number so that
// integers survive unchanged until the field set coerces them.
func decodeBody(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoData
		}
		return nil, errors.New("Invalid JSON: " + err.Error())
	}
	if len(raw) == 0 {
		return nil, errNoData
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}
