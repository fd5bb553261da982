package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/amishk599/vacancycache/internal/model"
)

// VacancyReader is the read side of the vacancy service.
type VacancyReader interface {
	GetVacancies(ctx context.Context) ([]model.Vacancy, error)
}

// NewRouter builds the read API:
//
//	GET /vacancies  cached vacancy collection
//	GET /healthz    liveness
func NewRouter(reader VacancyReader, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(logger), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/vacancies", listVacancies(reader, logger))

	return r
}

// NewServer wraps the router in an http.Server with conservative timeouts.
// WriteTimeout is left open because a cold-cache read refreshes synchronously.
func NewServer(addr string, reader VacancyReader, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(reader, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func listVacancies(reader VacancyReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vacancies, err := reader.GetVacancies(r.Context())
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, model.ErrNotConfigured) {
				status = http.StatusServiceUnavailable
			}
			logger.Error("serving vacancies failed",
				"request_id", middleware.GetReqID(r.Context()),
				"error", err,
			)
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		if vacancies == nil {
			vacancies = []model.Vacancy{}
		}
		writeJSON(w, http.StatusOK, vacancies)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
