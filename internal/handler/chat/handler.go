package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/identity"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
	"github.com/skillup-labs/skillup/backend/internal/service/reply"
	"github.com/skillup-labs/skillup/backend/pkg/utils"
)

// Handler exposes the dialogue pipeline over HTTP.
type Handler struct {
	convoSvc *convoservice.Service
	log      zerolog.Logger
}

// New creates the chat handler.
func New(convoSvc *convoservice.Service, log zerolog.Logger) *Handler {
	return &Handler{convoSvc: convoSvc, log: log}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/session", h.handleCreateSession)
	r.Route("/chat/{sessionID}", func(session chi.Router) {
		session.Get("/turns", h.handleTurns)
		session.Post("/message", h.handleMessage)
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.convoSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	turns, _ := h.convoSvc.Turns(r.Context(), session.ID)
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session": session,
		"turns":   turns,
	})
}

func (h *Handler) handleTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.convoSvc.Turns(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userTurn, replyTurn, err := h.convoSvc.Send(r.Context(), sessionID, payload.Content)
	if err != nil {
		h.respondSendError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"user":      userTurn,
		"assistant": replyTurn,
	})
}

func (h *Handler) respondSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, convoservice.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, convoservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, identity.ErrUnauthenticated):
		utils.RespondError(w, http.StatusUnauthorized, "please sign in to send messages")
	case errors.Is(err, convoservice.ErrSendInFlight):
		utils.RespondError(w, http.StatusConflict, "a message is already being sent")
	case errors.Is(err, reply.ErrQuotaExceeded):
		utils.RespondError(w, http.StatusTooManyRequests, "the assistant is over its usage quota, please try again later")
	default:
		h.log.Error().Err(err).Msg("send failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
	}
}
