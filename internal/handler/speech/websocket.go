package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/identity"
	"github.com/skillup-labs/skillup/backend/internal/playback"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
	"github.com/skillup-labs/skillup/backend/internal/service/reply"
)

// WebSocketHandler drives the realtime voice loop for one session: audio
// chunks become a pending transcript, text frames run the send cycle, and
// assistant replies stream back as synthesized speech frames.
type WebSocketHandler struct {
	speechSvc SpeechService
	convoSvc  *convoservice.Service
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// NewWebSocketHandler creates the websocket handler.
func NewWebSocketHandler(speechSvc SpeechService, convoSvc *convoservice.Service, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		speechSvc: speechSvc,
		convoSvc:  convoSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage buffers one captured audio chunk; IsFinal marks the stop
// transition and triggers transcription of everything buffered so far.
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	Language  string `json:"language"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage sends the composed message through the dialogue pipeline.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage adjusts per-connection speech settings.
type ConfigMessage struct {
	Voice        string `json:"voice"`
	Language     string `json:"language"`
	SpeakReplies *bool  `json:"speakReplies,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; the read loop and the playback goroutine both
// emit frames.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// framePlayer is the connection's audio output: playing an utterance means
// delivering one speech frame to the client.
type framePlayer struct {
	ws        *wsConn
	sessionID string
}

func (p *framePlayer) Play(_ context.Context, audio []byte, format string) error {
	return p.ws.writeJSON(outgoingMessage{
		Type:      "result",
		SessionID: p.sessionID,
		Data: map[string]any{
			"type":         "speech",
			"audioContent": base64.StdEncoding.EncodeToString(audio),
			"format":       format,
		},
		Timestamp: time.Now().Unix(),
	})
}

type connectionState struct {
	sessionID    string
	language     string
	voice        string
	speakReplies bool
	audioFormat  string
	buffer       bytes.Buffer
	playback     *playback.Controller
}

func (h *WebSocketHandler) newConnectionState(sessionID string, ws *wsConn) *connectionState {
	state := &connectionState{
		sessionID:    sessionID,
		speakReplies: true,
	}
	state.playback = h.newPlayback(state, ws)
	return state
}

func (h *WebSocketHandler) newPlayback(state *connectionState, ws *wsConn) *playback.Controller {
	return playback.NewController(playback.Config{
		Synthesizer: h.speechSvc,
		Player:      &framePlayer{ws: ws, sessionID: state.sessionID},
		Voice:       state.voice,
		Format:      "mp3",
		Logger:      h.log,
	})
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.convoSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	state := h.newConnectionState(sessionID, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Browsers cannot set headers on a websocket dial, so the access token
	// arrives as a query parameter.
	if token := r.URL.Query().Get("token"); token != "" {
		ctx = identity.WithToken(ctx, token)
	}

	h.log.Info().Str("session", sessionID).Msg("websocket connected")

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, ws)

	h.sendResult(ws, sessionID, map[string]any{"type": "connected"})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("session", sessionID).Msg("websocket read error")
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(ws, "session mismatch")
			continue
		}

		h.handleMessage(ctx, ws, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, ws *wsConn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudio(ctx, ws, state, msg.Data)
	case "text":
		h.handleText(ctx, ws, state, msg.Data)
	case "config":
		h.handleConfig(ws, state, msg.Data)
	default:
		h.sendError(ws, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleAudio(ctx context.Context, ws *wsConn, state *connectionState, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(ws, "invalid audio payload")
		return
	}

	if len(audio.AudioData) > 0 {
		state.buffer.Write(audio.AudioData)
	}
	if audio.Format != "" {
		state.audioFormat = audio.Format
	}
	if audio.Language != "" {
		state.language = audio.Language
	}

	if !audio.IsFinal {
		return
	}

	payload := make([]byte, state.buffer.Len())
	copy(payload, state.buffer.Bytes())
	state.buffer.Reset()

	if len(payload) == 0 {
		return
	}

	format := state.audioFormat
	if format == "" {
		format = "webm"
	}

	resp, err := h.speechSvc.TranscribeBuffer(ctx, state.sessionID, payload, format, state.language)
	if err != nil {
		// The client's pending input stays unchanged on failure.
		h.log.Warn().Err(err).Str("session", state.sessionID).Msg("transcription failed")
		h.sendError(ws, "failed to convert speech to text")
		return
	}

	// Recognized text becomes the pending composed message on the client;
	// it is never auto-sent.
	h.sendResult(ws, state.sessionID, map[string]any{
		"type": "transcript",
		"text": resp.Text,
	})
}

func (h *WebSocketHandler) handleText(ctx context.Context, ws *wsConn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(ws, "invalid text payload")
		return
	}

	userTurn, replyTurn, err := h.convoSvc.Send(ctx, state.sessionID, text.Text)
	if err != nil {
		h.sendSendError(ws, err)
		// The user turn may already be visible even when the cycle failed.
		if userTurn.ID != "" {
			h.sendResult(ws, state.sessionID, map[string]any{"type": "turn", "turn": userTurn})
		}
		return
	}

	h.sendResult(ws, state.sessionID, map[string]any{"type": "turn", "turn": userTurn})
	h.sendResult(ws, state.sessionID, map[string]any{"type": "turn", "turn": replyTurn})

	if state.speakReplies {
		h.speakReply(ctx, ws, state, replyTurn.Content)
	}
}

func (h *WebSocketHandler) speakReply(ctx context.Context, ws *wsConn, state *connectionState, text string) {
	err := state.playback.Speak(ctx, state.sessionID, text)
	switch {
	case err == nil:
	case errors.Is(err, playback.ErrSpeaking):
		h.sendError(ws, "playback already in progress")
	default:
		h.log.Warn().Err(err).Str("session", state.sessionID).Msg("reply synthesis failed")
		h.sendError(ws, "failed to convert text to speech")
	}
}

func (h *WebSocketHandler) handleConfig(ws *wsConn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(ws, "invalid config payload")
		return
	}

	h.applyConfig(state, ws, cfg)

	h.sendResult(ws, state.sessionID, map[string]any{
		"type":         "config",
		"voice":        state.voice,
		"language":     state.language,
		"speakReplies": state.speakReplies,
	})
}

func (h *WebSocketHandler) applyConfig(state *connectionState, ws *wsConn, cfg ConfigMessage) {
	if cfg.Language != "" {
		state.language = cfg.Language
	}
	if cfg.SpeakReplies != nil {
		state.speakReplies = *cfg.SpeakReplies
	}
	// Voice changes only land between utterances; mid-playback they are
	// dropped so the current stream keeps its voice.
	if cfg.Voice != "" && cfg.Voice != state.voice && !state.playback.Speaking() {
		state.voice = cfg.Voice
		state.playback = h.newPlayback(state, ws)
	}
}

func (h *WebSocketHandler) sendSendError(ws *wsConn, err error) {
	switch {
	case errors.Is(err, convoservice.ErrSendInFlight):
		h.sendError(ws, "a message is already being sent")
	case errors.Is(err, identity.ErrUnauthenticated):
		h.sendError(ws, "please sign in to send messages")
	case errors.Is(err, reply.ErrQuotaExceeded):
		h.sendError(ws, "the assistant is over its usage quota, please try again later")
	case errors.Is(err, convoservice.ErrEmptyMessage):
		h.sendError(ws, "message is required")
	default:
		h.sendError(ws, "failed to send message")
	}
}

func (h *WebSocketHandler) sendResult(ws *wsConn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := ws.writeJSON(msg); err != nil {
		h.log.Warn().Err(err).Msg("websocket write failed")
	}
}

func (h *WebSocketHandler) sendError(ws *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := ws.writeJSON(msg); err != nil {
		h.log.Warn().Err(err).Msg("websocket write failed")
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, ws *wsConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.ping(); err != nil {
				return
			}
		}
	}
}
