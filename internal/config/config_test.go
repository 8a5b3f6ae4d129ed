package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ARK_TEMPERATURE", "ARK_MAX_TOKENS", "SPEECH_TIMEOUT",
		"SPEECH_TRANSCRIBE_MODEL", "SPEECH_TTS_MODEL", "SPEECH_TTS_VOICE",
		"SUPABASE_MESSAGES_TABLE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected default addr: %q", cfg.Server.Addr)
	}
	if cfg.Speech.TranscribeModel != "whisper-1" {
		t.Fatalf("unexpected transcribe model: %q", cfg.Speech.TranscribeModel)
	}
	if cfg.Speech.SpeechModel != "tts-1" {
		t.Fatalf("unexpected speech model: %q", cfg.Speech.SpeechModel)
	}
	if cfg.Speech.Voice != "nova" {
		t.Fatalf("unexpected voice: %q", cfg.Speech.Voice)
	}
	if cfg.Speech.Timeout != 30 {
		t.Fatalf("unexpected timeout: %d", cfg.Speech.Timeout)
	}
	if cfg.Supabase.Table != "chat_messages" {
		t.Fatalf("unexpected table: %q", cfg.Supabase.Table)
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.7 {
		t.Fatalf("unexpected default temperature: %v", cfg.AI.Temperature)
	}
	if cfg.AI.MaxTokens == nil || *cfg.AI.MaxTokens != 150 {
		t.Fatalf("unexpected default max tokens: %v", cfg.AI.MaxTokens)
	}
}

func TestLoadPortForms(t *testing.T) {
	cases := []struct {
		port string
		want string
	}{
		{"9000", ":9000"},
		{":9000", ":9000"},
		{"127.0.0.1:9000", "127.0.0.1:9000"},
		{"", ":8080"},
	}

	for _, tc := range cases {
		t.Setenv("PORT", tc.port)
		cfg, err := loadServerConfig()
		if err != nil {
			t.Fatalf("PORT=%q err: %v", tc.port, err)
		}
		if cfg.Addr != tc.want {
			t.Fatalf("PORT=%q: got %q want %q", tc.port, cfg.Addr, tc.want)
		}
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "80 80")
	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for malformed PORT")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{"api key + model", AIConfig{APIKey: "k", Model: "m"}, true},
		{"ak/sk pair + model", AIConfig{AccessKey: "ak", SecretKey: "sk", Model: "m"}, true},
		{"missing model", AIConfig{APIKey: "k"}, false},
		{"missing credentials", AIConfig{Model: "m"}, false},
		{"incomplete pair", AIConfig{AccessKey: "ak", Model: "m"}, false},
	}

	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Errorf("%s: Enabled() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSpeechConfigEnabled(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := loadSpeechConfig()
	if err != nil {
		t.Fatalf("loadSpeechConfig err: %v", err)
	}
	if !cfg.Enabled {
		t.Fatal("expected speech enabled with api key")
	}

	t.Setenv("OPENAI_API_KEY", "")
	cfg, _ = loadSpeechConfig()
	if cfg.Enabled {
		t.Fatal("expected speech disabled without api key")
	}
}

func TestSupabaseInsertKeyPrefersServiceKey(t *testing.T) {
	cfg := SupabaseConfig{AnonKey: "anon", ServiceKey: "service"}
	if got := cfg.InsertKey(); got != "service" {
		t.Fatalf("expected service key, got %q", got)
	}

	cfg.ServiceKey = ""
	if got := cfg.InsertKey(); got != "anon" {
		t.Fatalf("expected anon key, got %q", got)
	}
}

func TestParseOptionalEnvs(t *testing.T) {
	t.Setenv("ARK_TEMPERATURE", "0.2")
	temp, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil || temp == nil || *temp != 0.2 {
		t.Fatalf("parseOptionalFloatEnv: %v %v", temp, err)
	}

	t.Setenv("ARK_TEMPERATURE", "warm")
	if _, err := parseOptionalFloatEnv("ARK_TEMPERATURE"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}

	t.Setenv("ARK_MAX_TOKENS", "256")
	tokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil || tokens == nil || *tokens != 256 {
		t.Fatalf("parseOptionalIntEnv: %v %v", tokens, err)
	}
}
