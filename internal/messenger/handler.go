package messenger

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/joao-fontenele/commentorder/internal/telemetry"
)

// Handler simulates the messaging platform for local development. Every
// accepted message is logged and kept in memory.
type Handler struct {
	logger   *slog.Logger
	maxDelay time.Duration

	mu   sync.Mutex
	sent []Message
}

type Message struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to,omitempty"`
	FeedID    string    `json:"feed_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

func NewHandler(logger *slog.Logger, maxDelay time.Duration) *Handler {
	return &Handler{
		logger:   logger,
		maxDelay: maxDelay,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /push", telemetry.WithHTTPRoute(h.HandlePush))
	mux.HandleFunc("POST /feeds/{feedId}/comments/{commentId}/replies", telemetry.WithHTTPRoute(h.HandleReply))
	mux.HandleFunc("GET /messages", telemetry.WithHTTPRoute(h.HandleList))
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.To == "" || req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "to and content are required")
		return
	}

	h.simulateLatency()
	h.record(Message{Kind: "push", To: req.To, Content: req.Content})
	h.logger.Info("message pushed", "to", req.To)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("feedId")
	commentID := r.PathValue("commentId")

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	h.simulateLatency()
	h.record(Message{Kind: "reply", FeedID: feedID, CommentID: commentID, Content: req.Content})
	h.logger.Info("reply posted", "feed_id", feedID, "comment_id", commentID)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Sent())
}

func (h *Handler) Sent() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.sent))
	copy(out, h.sent)
	return out
}

func (h *Handler) record(m Message) {
	m.SentAt = time.Now().UTC()
	h.mu.Lock()
	h.sent = append(h.sent, m)
	h.mu.Unlock()
}

func (h *Handler) simulateLatency() {
	if h.maxDelay <= 0 {
		return
	}
	time.Sleep(time.Duration(rand.Int63n(int64(h.maxDelay))))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
