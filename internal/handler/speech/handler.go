package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	speechmodel "github.com/skillup-labs/skillup/backend/internal/model/speech"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
	speechservice "github.com/skillup-labs/skillup/backend/internal/service/speech"
	"github.com/skillup-labs/skillup/backend/pkg/utils"
)

// SpeechService abstracts the transcription and synthesis clients so the
// handlers can be tested against fakes.
type SpeechService interface {
	Synthesize(ctx context.Context, req *speechmodel.SynthesizeRequest) (*speechmodel.SynthesizeResponse, error)
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.TranscribeResponse, error)
	SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, format string) (*speechmodel.SynthesizeResponse, error)
}

// Handler exposes the speech boundary: base64 audio in, recognized text
// out, and text in, base64 audio out.
type Handler struct {
	speechSvc SpeechService
	log       zerolog.Logger
}

// New creates the speech handler.
func New(speechSvc SpeechService, log zerolog.Logger) *Handler {
	return &Handler{speechSvc: speechSvc, log: log}
}

// RegisterRoutes mounts the speech endpoints; the websocket loop is mounted
// separately because it needs the dialogue service too.
func (h *Handler) RegisterRoutes(r chi.Router, convoSvc *convoservice.Service) {
	r.Route("/speech", func(speech chi.Router) {
		speech.Post("/transcribe", h.handleTranscribe)
		speech.Post("/synthesize", h.handleSynthesize)

		if convoSvc != nil {
			ws := NewWebSocketHandler(h.speechSvc, convoSvc, h.log)
			ws.RegisterRoutes(speech)
		}
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Audio    string `json:"audio"`
		Format   string `json:"format"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Audio == "" {
		utils.RespondError(w, http.StatusBadRequest, "audio is required")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(payload.Audio)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio must be base64 encoded")
		return
	}

	format := payload.Format
	if format == "" {
		format = "webm"
	}

	resp, err := h.speechSvc.TranscribeBuffer(r.Context(), "", audio, format, payload.Language)
	if err != nil {
		if errors.Is(err, speechservice.ErrEmptyTranscript) {
			utils.RespondError(w, http.StatusUnprocessableEntity, "no speech recognized")
			return
		}
		h.log.Error().Err(err).Msg("transcription failed")
		utils.RespondError(w, http.StatusInternalServerError, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": resp.Text})
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.speechSvc.SynthesizeToBuffer(r.Context(), "", payload.Text, payload.Voice, "mp3")
	if err != nil {
		if errors.Is(err, speechservice.ErrEmptyText) {
			utils.RespondError(w, http.StatusBadRequest, "text is required")
			return
		}
		h.log.Error().Err(err).Msg("synthesis failed")
		utils.RespondError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"audioContent": base64.StdEncoding.EncodeToString(resp.Audio),
		"format":       resp.Format,
	})
}
