package speech_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skillup-labs/skillup/backend/internal/config"
	speechmodel "github.com/skillup-labs/skillup/backend/internal/model/speech"
	speech "github.com/skillup-labs/skillup/backend/internal/service/speech"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *speech.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return speech.NewService(config.SpeechConfig{
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		TranscribeModel: "whisper-1",
		SpeechModel:     "tts-1",
		Voice:           "nova",
		Timeout:         5,
	})
}

func TestTranscribe(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"  what courses do you offer?  "}`))
	})

	resp, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{
		SessionID: "s1",
		Audio:     []byte("fake-wav-bytes"),
		Format:    "wav",
	})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if resp.Text != "what courses do you offer?" {
		t.Fatalf("text not trimmed: %q", resp.Text)
	}
	if resp.SessionID != "s1" {
		t.Fatalf("session not carried: %q", resp.SessionID)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote service contacted for empty audio")
	})

	_, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{})
	if !errors.Is(err, speech.ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestTranscribeBlankResult(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"   "}`))
	})

	_, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{
		Audio: []byte("silence"),
	})
	if !errors.Is(err, speech.ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestTranscribeRemoteFailure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})

	_, err := svc.Transcribe(context.Background(), &speechmodel.TranscribeRequest{
		Audio: []byte("bytes"),
	})
	if err == nil {
		t.Fatal("expected error from remote failure")
	}
}

func TestSynthesize(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("mp3-audio-bytes"))
	})

	resp, err := svc.Synthesize(context.Background(), &speechmodel.SynthesizeRequest{
		SessionID: "s1",
		Text:      "hello learner",
	})
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(resp.Audio) != "mp3-audio-bytes" {
		t.Fatalf("unexpected audio: %q", resp.Audio)
	}
	if resp.Format != "mp3" {
		t.Fatalf("expected default mp3 format, got %q", resp.Format)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote service contacted for empty text")
	})

	_, err := svc.Synthesize(context.Background(), &speechmodel.SynthesizeRequest{Text: "   "})
	if !errors.Is(err, speech.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestSynthesizeToBufferPassesVoiceAndFormat(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pcm-bytes"))
	})

	resp, err := svc.SynthesizeToBuffer(context.Background(), "s1", "hello", "alloy", "pcm")
	if err != nil {
		t.Fatalf("SynthesizeToBuffer err: %v", err)
	}
	if resp.Format != "pcm" {
		t.Fatalf("format not carried: %q", resp.Format)
	}
}
