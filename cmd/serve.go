package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menuscan/menuscan/internal/cache"
	"github.com/menuscan/menuscan/internal/extract"
	"github.com/menuscan/menuscan/internal/menu"
	"github.com/menuscan/menuscan/internal/model"
	"github.com/menuscan/menuscan/internal/scrape"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the menu API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/api/menu", menuHandler(env.Service))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type menuRequest struct {
	URL         string             `json:"url"`
	Date        string             `json:"date,omitempty"`
	Preferences *model.Preferences `json:"preferences,omitempty"`
}

// menuHandler validates the request (the upstream-validation boundary: the
// orchestrator itself assumes a well-formed url and date) and invokes the
// orchestrator.
func menuHandler(svc *menu.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req menuRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := validateURL(req.URL); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		date := req.Date
		if date == "" {
			date = time.Now().Format(model.DateLayout)
		} else if _, err := time.Parse(model.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		if req.Preferences != nil && req.Preferences.Price != nil && *req.Preferences.Price <= 0 {
			writeError(w, http.StatusBadRequest, "preferences.price must be positive")
			return
		}

		result, err := svc.GetMenu(r.Context(), req.URL, date, req.Preferences)
		if err != nil {
			status := statusForError(err)
			zap.L().Error("menu request failed",
				zap.String("url", req.URL),
				zap.String("date", date),
				zap.Int("status", status),
				zap.Error(err),
			)
			writeError(w, status, "menu resolution failed")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be http or https")
	}
	return nil
}

// statusForError maps pipeline failures onto HTTP statuses: upstream fetch
// problems are retryable (502), unusable reasoning-service output is not
// the caller's fault but not retryable either (422), storage faults are 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, scrape.ErrFetchFailed), errors.Is(err, scrape.ErrEmptyPage):
		return http.StatusBadGateway
	case errors.Is(err, extract.ErrExtractionFailed),
		errors.Is(err, extract.ErrInvalidJSON),
		errors.Is(err, extract.ErrInvalidSchema):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cache.ErrNotInitialized):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
