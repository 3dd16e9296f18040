package scheduler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// staleFactor: сколько максимальных интервалов может пройти без цикла
const staleFactor = 3

type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

// Register подключает маршруты планировщика к mux.
// trigger оборачивает ручной запуск (например, лимитом запросов).
func (h *Handler) Register(mux *http.ServeMux, trigger func(http.Handler) http.Handler) {
	if trigger == nil {
		trigger = func(next http.Handler) http.Handler { return next }
	}

	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/readyz", h.readyz)
	mux.HandleFunc("/api/v1/scheduler/status", h.status)
	mux.Handle("/api/v1/scheduler/run", trigger(http.HandlerFunc(h.runNow)))
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.runner.Snapshot()

	response := map[string]string{
		"status":     "ok",
		"state":      string(snapshot.State),
		"uptime":     time.Since(snapshot.StartedAt).Round(time.Second).String(),
		"last_error": snapshot.LastError,
	}
	if !snapshot.LastRunAt.IsZero() {
		response["last_run"] = snapshot.LastRunAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.runner.Snapshot()
	if snapshot.LastRunAt.IsZero() {
		http.Error(w, "not ready: no cycle completed yet", http.StatusServiceUnavailable)
		return
	}
	if h.runner.now().Sub(snapshot.LastRunAt) > snapshot.MaxInterval*staleFactor {
		http.Error(w, "not ready: stale monitoring cycle", http.StatusServiceUnavailable)
		return
	}
	if snapshot.LastError != "" {
		http.Error(w, "not ready: last cycle failed", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.runner.Snapshot())
}

func (h *Handler) runNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// цикл доводится до конца даже при обрыве соединения клиента
	result, err := h.runner.Trigger(r.Context())
	if errors.Is(err, ErrCycleInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "busy",
			"error":  err.Error(),
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}
