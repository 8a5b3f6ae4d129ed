package speech

// TranscribeRequest carries a finished audio payload for recognition.
type TranscribeRequest struct {
	SessionID string `json:"sessionId"`
	Audio     []byte `json:"-"`
	Format    string `json:"format"`   // wav, webm, mp3, ...
	Language  string `json:"language"` // optional hint, e.g. "en"
}

// SynthesizeRequest carries text for speech synthesis.
type SynthesizeRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	Format    string `json:"format"` // mp3 for the wire, pcm for device playback
}
