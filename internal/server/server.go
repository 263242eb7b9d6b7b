// Package server exposes the dashboard over a JSON HTTP API: selection
// events in, views and GeoJSON map layers out.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/dashboard"
	"github.com/sells-group/regionmap/internal/region"
)

// Options configures the HTTP handler.
type Options struct {
	// CORSOrigins lists allowed browser origins. Empty means "*".
	CORSOrigins []string
}

// Server routes API requests to a Dashboard.
type Server struct {
	dash   *dashboard.Dashboard
	router chi.Router
}

// New builds the API router for d.
func New(d *dashboard.Dashboard, opts Options) *Server {
	s := &Server{dash: d}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics", s.metrics)
		r.Get("/regions", s.regions)
		r.Get("/regions/{key}", s.regionDetail)
		r.Get("/view", s.view)
		r.Get("/map.geojson", s.mapLayer)
		r.Get("/locate", s.locate)
		r.Post("/refresh", s.refresh)
		r.Route("/selection", func(r chi.Router) {
			r.Put("/metric", s.setMetric)
			r.Put("/regions", s.setRegions)
			r.Put("/year", s.setYear)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"regions": len(s.dash.Records()),
	})
}

func (s *Server) metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Catalog().Defs())
}

// regionSummary is one row of the region list.
type regionSummary struct {
	Key     string             `json:"key"`
	Metrics map[string]float64 `json:"metrics"`
}

func (s *Server) regions(w http.ResponseWriter, _ *http.Request) {
	records := s.dash.Records()
	out := make([]regionSummary, len(records))
	for i, rec := range records {
		out[i] = regionSummary{Key: rec.Key, Metrics: rec.Metrics}
	}
	writeJSON(w, http.StatusOK, out)
}

// regionDetails is the info panel for one region.
type regionDetails struct {
	Key     string                 `json:"key"`
	Metrics map[string]float64     `json:"metrics"`
	Details []dashboard.DetailLine `json:"details"`
}

func (s *Server) details(rec region.Record) regionDetails {
	return regionDetails{
		Key:     rec.Key,
		Metrics: rec.Metrics,
		Details: dashboard.Details(rec, s.dash.Catalog()),
	}
}

func (s *Server) regionDetail(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rec, ok := s.dash.Record(key)
	if !ok {
		writeMessage(w, http.StatusNotFound, "region not found")
		return
	}
	writeJSON(w, http.StatusOK, s.details(rec))
}

func (s *Server) view(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Current())
}

func (s *Server) mapLayer(w http.ResponseWriter, r *http.Request) {
	records := s.dash.Records()
	if z := r.URL.Query().Get("zoom"); z != "" {
		zoom, err := strconv.Atoi(z)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid zoom")
			return
		}
		records = dashboard.ForZoom(records, zoom)
	}

	fc := dashboard.MapFeatures(records, s.dash.Current().Classification)
	data, err := json.Marshal(fc)
	if err != nil {
		writeError(w, eris.Wrap(err, "server: encode map layer"))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeMessage(w, http.StatusBadRequest, "lat and lon are required numbers")
		return
	}

	rec, ok := s.dash.Locate(lat, lon)
	if !ok {
		writeMessage(w, http.StatusNotFound, "no region at point")
		return
	}
	writeJSON(w, http.StatusOK, s.details(rec))
}

func (s *Server) refresh(w http.ResponseWriter, _ *http.Request) {
	respondView(w)(s.dash.Refresh())
}

func (s *Server) setMetric(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metric string `json:"metric"`
	}
	if !decode(w, r, &req) {
		return
	}
	respondView(w)(s.dash.SetMetric(req.Metric))
}

func (s *Server) setRegions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Regions []string `json:"regions"`
	}
	if !decode(w, r, &req) {
		return
	}
	f, err := dashboard.ParseFilter(req.Regions)
	if err != nil {
		writeError(w, err)
		return
	}
	respondView(w)(s.dash.SetRegions(f))
}

func (s *Server) setYear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year *int `json:"year"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Year == nil {
		writeMessage(w, http.StatusBadRequest, "year is required")
		return
	}
	respondView(w)(s.dash.SetYear(*req.Year))
}

// respondView writes the view from a dashboard event, or the mapped error.
func respondView(w http.ResponseWriter) func(dashboard.View, error) {
	return func(v dashboard.View, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps dashboard errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case eris.Is(err, dashboard.ErrUnknownMetric),
		eris.Is(err, dashboard.ErrEmptyFilter),
		eris.Is(err, dashboard.ErrYearOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed", zap.Error(err))
		writeMessage(w, status, "internal error")
		return
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes v before writing the header, so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
