package speech

import "time"

// TranscribeResponse holds the recognized text for one payload.
type TranscribeResponse struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// SynthesizeResponse holds synthesized audio for one utterance.
type SynthesizeResponse struct {
	SessionID string    `json:"sessionId"`
	Audio     []byte    `json:"-"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"createdAt"`
}
