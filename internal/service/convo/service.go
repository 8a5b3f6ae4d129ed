package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/identity"
	convomodel "github.com/skillup-labs/skillup/backend/internal/model/convo"
	"github.com/skillup-labs/skillup/backend/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message text is empty")
	// ErrSendInFlight rejects a send attempted while another one is
	// outstanding for the same session. The attempt is observable to the
	// caller; it is neither queued nor silently dropped.
	ErrSendInFlight = errors.New("a send is already in progress")
)

// Greeting opens every new session as the assistant's first turn.
const Greeting = "Hello! I'm here to assist you with your learning journey. Feel free to speak or type in any language you're comfortable with. You can click the microphone button to start speaking, and I'll convert your voice to text. How can I help you today?"

// Replier produces one assistant turn from the full ordered history.
type Replier interface {
	Generate(ctx context.Context, turns []convomodel.Turn) (convomodel.Turn, error)
}

// Speaker plays an assistant reply back as synthesized speech.
type Speaker interface {
	Speak(ctx context.Context, sessionID, text string) error
}

type session struct {
	info    convomodel.Session
	turns   []convomodel.Turn
	sending bool
}

// Service holds the live, ordered turn sequences and coordinates the send
// cycle: append user turn, persist, request reply, append and persist the
// assistant turn, then trigger playback.
type Service struct {
	store   store.Store
	replier Replier
	ident   identity.Resolver
	speaker Speaker
	log     zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService builds the dialogue service.
func NewService(st store.Store, replier Replier, ident identity.Resolver, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		replier:  replier,
		ident:    ident,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// AttachSpeaker enables reply playback after each successful send. Playback
// rejections and failures never fail the send.
func (s *Service) AttachSpeaker(speaker Speaker) {
	s.speaker = speaker
}

// CreateSession provisions a session seeded with the greeting turn.
func (s *Service) CreateSession(_ context.Context) (convomodel.Session, error) {
	info := convomodel.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	greeting := convomodel.Turn{
		ID:        uuid.NewString(),
		SessionID: info.ID,
		Role:      convomodel.RoleAssistant,
		Content:   Greeting,
		CreatedAt: info.CreatedAt,
	}

	s.mu.Lock()
	s.sessions[info.ID] = &session{
		info:  info,
		turns: []convomodel.Turn{greeting},
	}
	s.mu.Unlock()

	return info, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (convomodel.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return convomodel.Session{}, ErrSessionNotFound
	}
	return sess.info, nil
}

// Turns returns a copy of the ordered turn sequence.
func (s *Service) Turns(_ context.Context, sessionID string) ([]convomodel.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	turns := make([]convomodel.Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns, nil
}

// Send runs one full turn cycle under the session's busy guard: identity
// check, user turn append and persist, reply generation, assistant turn
// append and persist, playback. The user turn is visible as soon as it is
// appended; a failed persist is surfaced but never rolled back or retried.
func (s *Service) Send(ctx context.Context, sessionID, text string) (convomodel.Turn, convomodel.Turn, error) {
	var userTurn, replyTurn convomodel.Turn

	text = strings.TrimSpace(text)
	if text == "" {
		return userTurn, replyTurn, ErrEmptyMessage
	}

	sess, err := s.acquire(sessionID)
	if err != nil {
		return userTurn, replyTurn, err
	}
	defer s.release(sess)

	// Resolve identity before anything is appended or persisted: without an
	// authenticated user the whole send fails closed.
	user, err := s.ident.Resolve(ctx)
	if err != nil {
		return userTurn, replyTurn, fmt.Errorf("resolve identity: %w", err)
	}

	userTurn = s.append(sess, convomodel.RoleUser, text)

	if err := s.store.Insert(ctx, store.Record{
		Content:     userTurn.Content,
		IsAssistant: false,
		UserID:      user.ID,
	}); err != nil {
		// The optimistic in-memory turn stays visible; the reply service is
		// never contacted for a turn that failed to persist.
		return userTurn, replyTurn, fmt.Errorf("persist user turn: %w", err)
	}

	history, _ := s.Turns(ctx, sessionID)
	generated, err := s.replier.Generate(ctx, history)
	if err != nil {
		return userTurn, replyTurn, fmt.Errorf("generate reply: %w", err)
	}

	replyTurn = s.append(sess, convomodel.RoleAssistant, generated.Content)

	if err := s.store.Insert(ctx, store.Record{
		Content:     replyTurn.Content,
		IsAssistant: true,
		UserID:      user.ID,
	}); err != nil {
		return userTurn, replyTurn, fmt.Errorf("persist assistant turn: %w", err)
	}

	s.speak(ctx, sessionID, replyTurn.Content)

	return userTurn, replyTurn, nil
}

func (s *Service) acquire(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.sending {
		return nil, ErrSendInFlight
	}
	sess.sending = true
	return sess, nil
}

func (s *Service) release(sess *session) {
	s.mu.Lock()
	sess.sending = false
	s.mu.Unlock()
}

func (s *Service) append(sess *session, role convomodel.Role, content string) convomodel.Turn {
	turn := convomodel.Turn{
		ID:        uuid.NewString(),
		SessionID: sess.info.ID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	sess.turns = append(sess.turns, turn)
	s.mu.Unlock()

	return turn
}

func (s *Service) speak(ctx context.Context, sessionID, text string) {
	if s.speaker == nil {
		return
	}
	if err := s.speaker.Speak(ctx, sessionID, text); err != nil {
		// A busy playback controller rejects the utterance; that is the
		// designed outcome, not a send failure.
		s.log.Warn().Err(err).Str("session", sessionID).Msg("reply playback skipped")
	}
}
