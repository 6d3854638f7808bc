package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cps-exam-service/internal/app"
	"cps-exam-service/internal/domain"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 20

// HistoryHandler serves GET /attempts?userId=&limit=.
type HistoryHandler struct {
	service *app.ExamService
	log     zerolog.Logger
}

func NewHistoryHandler(service *app.ExamService, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{service: service, log: log.With().Str("component", "history").Logger()}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		// limit <= 0 would list the whole history
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	attempts, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("list attempts failed")
		http.Error(w, "could not load attempts", http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []domain.Attempt{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"attempts": attempts})
}

// NewMux wires the exam endpoints.
func NewMux(service *app.ExamService, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", NewWSHandler(service, log).ServeWS)
	mux.Handle("/attempts", NewHistoryHandler(service, log))
	return mux
}
