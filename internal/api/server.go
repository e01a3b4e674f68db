package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/sirupsen/logrus"
)

// URLProcessor runs the automatic resolve-and-deliver flow for one link.
type URLProcessor interface {
	ProcessURL(ctx context.Context, chatID int64, rawURL string) error
}

// Server exposes the web trigger: a GET endpoint that feeds a URL into the
// pipeline as if the admin had sent it in chat.
type Server struct {
	cfg  *config.Config
	proc URLProcessor
}

func NewServer(cfg *config.Config, proc URLProcessor) *Server {
	return &Server{cfg: cfg, proc: proc}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/trigger", s.handleTrigger)
	return r
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.cfg.ListenAddr).Info("Trigger endpoint listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// handleTrigger acknowledges immediately; the pipeline completes in the
// background and its outcome lands in the admin chat, not in this response.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if secret == "" || secret != strconv.FormatInt(s.cfg.AdminID, 10) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	logrus.WithField("url", rawURL).Info("Web trigger accepted")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.proc.ProcessURL(ctx, s.cfg.AdminID, rawURL); err != nil {
			logrus.WithError(err).WithField("url", rawURL).Error("Triggered delivery failed")
		}
	}()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "accepted")
}
