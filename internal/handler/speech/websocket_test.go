package speech

import (
	"testing"

	"github.com/rs/zerolog"
)

func boolPtr(v bool) *bool { return &v }

func TestApplyConfigUpdatesState(t *testing.T) {
	handler := NewWebSocketHandler(&fakeSpeechService{}, nil, zerolog.Nop())
	ws := &wsConn{}
	state := handler.newConnectionState("session", ws)

	cfg := ConfigMessage{
		Voice:        "alloy",
		Language:     "en",
		SpeakReplies: boolPtr(false),
	}

	handler.applyConfig(state, ws, cfg)

	if state.voice != "alloy" {
		t.Fatalf("expected voice alloy, got %s", state.voice)
	}
	if state.language != "en" {
		t.Fatalf("expected language en, got %s", state.language)
	}
	if state.speakReplies {
		t.Fatal("expected speakReplies disabled")
	}
}

func TestApplyConfigRebuildsPlaybackOnVoiceChange(t *testing.T) {
	handler := NewWebSocketHandler(&fakeSpeechService{}, nil, zerolog.Nop())
	ws := &wsConn{}
	state := handler.newConnectionState("session", ws)
	initial := state.playback

	handler.applyConfig(state, ws, ConfigMessage{Voice: "alloy"})
	if state.playback == initial {
		t.Fatal("playback controller not rebuilt for new voice")
	}

	// Same voice again leaves the controller alone.
	rebuilt := state.playback
	handler.applyConfig(state, ws, ConfigMessage{Voice: "alloy"})
	if state.playback != rebuilt {
		t.Fatal("playback controller rebuilt without a voice change")
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	handler := NewWebSocketHandler(&fakeSpeechService{}, nil, zerolog.Nop())
	ws := &wsConn{}
	state := handler.newConnectionState("session", ws)

	if !state.speakReplies {
		t.Fatal("expected speakReplies enabled by default")
	}

	// An empty config changes nothing.
	handler.applyConfig(state, ws, ConfigMessage{})
	if !state.speakReplies || state.voice != "" || state.language != "" {
		t.Fatalf("empty config mutated state: %+v", state)
	}
}
