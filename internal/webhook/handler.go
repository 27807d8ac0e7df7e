package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/metrics"
)

const (
	responseOK   = "OK"
	responseFail = "FAIL"
	maxBodyBytes = 4 << 20
)

type Handler struct {
	Reconciler *Reconciler
	Journal    journal.Recorder
	Timeout    time.Duration
	Logger     *slog.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleAlerts)
	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/history/{component}", h.handleHistory)
}

// handleAlerts answers "OK" or "FAIL" as plain text. A missing component is
// still a 200: Alertmanager would only resend the same unmappable batch.
func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.ObserveWebhookBatch("invalid")
		writeText(w, http.StatusBadRequest, responseFail)
		return
	}
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger().Error("invalid alertmanager payload", slog.String("error", err.Error()), slog.String("body", truncate(string(body), 2048)))
		metrics.ObserveWebhookBatch("invalid")
		writeText(w, http.StatusBadRequest, responseFail)
		return
	}
	h.logger().Debug("alertmanager payload", slog.String("body", truncate(string(body), 16<<10)))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()
	outcome, err := h.Reconciler.Reconcile(ctx, payload)
	if errors.Is(err, ErrComponentNotFound) {
		metrics.ObserveWebhookBatch("not_found")
		writeText(w, http.StatusOK, responseFail)
		return
	}
	h.logger().Info("alertmanager batch done", slog.Int("applied", outcome.Applied), slog.Int("failed", outcome.Failed))
	metrics.ObserveWebhookBatch("ok")
	writeText(w, http.StatusOK, responseOK)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "message": "journal not configured"})
		return
	}
	component := chi.URLParam(r, "component")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()
	entries, err := h.Journal.Recent(ctx, component, limit)
	if err != nil {
		h.logger().Error("failed to read journal", slog.String("component", component), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to read journal"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 30 * time.Second
	}
	return h.Timeout
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
