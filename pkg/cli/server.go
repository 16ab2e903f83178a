package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	urfave "github.com/urfave/cli/v3"

	"github.com/mchmarny/devscore/pkg/metrics"
	"github.com/mchmarny/devscore/pkg/platform"
	"github.com/mchmarny/devscore/pkg/profile"
	"github.com/mchmarny/devscore/pkg/review"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverMaxBodyBytes        = 1 << 16
)

var addressFlag = &urfave.StringFlag{
	Name:  "address",
	Usage: "Address on which the server will listen (default: config value or 127.0.0.1:8080)",
}

func newServerCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start the HTTP API server",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			addressFlag,
		},
	}
}

// scoreService is the part of profile.Service the API uses.
type scoreService interface {
	Score(ctx context.Context, u profile.Usernames, opts profile.Options) (*profile.Report, error)
	History(ctx context.Context, github string, limit int) ([]*profile.Report, error)
}

type scoreRequest struct {
	GitHub     string `json:"github"`
	LeetCode   string `json:"leetcode"`
	HackerRank string `json:"hackerrank"`
	Review     bool   `json:"review"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Review  *review.GateStats `json:"review,omitempty"`
}

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	ac := getConfig(cmd)

	address := cmd.String(addressFlag.Name)
	if address == "" {
		address = ac.cfg.ServerAddress
	}

	rt, err := ac.runtime(ctx)
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(rt.service, rt.reviewStats, rt.metrics),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server started", "address", "http://"+address)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(svc scoreService, stats func() *review.GateStats, m *metrics.Recorder) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST /score", m.Middleware("score", scoreAPIHandler(svc)))
	mux.Handle("GET /scores", m.Middleware("scores", historyAPIHandler(svc)))
	mux.Handle("GET /health", m.Middleware("health", healthAPIHandler(stats)))
	mux.Handle("GET /metrics", m.Handler())

	return mux
}

func scoreAPIHandler(svc scoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, serverMaxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))

		rep, err := svc.Score(r.Context(), profile.Usernames{
			GitHub:     req.GitHub,
			LeetCode:   req.LeetCode,
			HackerRank: req.HackerRank,
		}, profile.Options{Review: req.Review, Fresh: fresh})
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				slog.Error("score request failed", "github", req.GitHub, "error", err)
			}
			writeError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, rep)
	}
}

func historyAPIHandler(svc scoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		list, err := svc.History(r.Context(), q.Get("github"), limit)
		if err != nil {
			slog.Error("history request failed", "error", err)
			writeError(w, http.StatusInternalServerError, "error reading history")
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func healthAPIHandler(stats func() *review.GateStats) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res := healthResponse{Status: "ok", Version: version}
		if stats != nil {
			res.Review = stats()
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// statusFor maps a scoring error to the HTTP status returned to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrInvalidRequest):
		return http.StatusBadRequest
	case platform.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
