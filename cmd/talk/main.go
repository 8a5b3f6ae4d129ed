package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skillup-labs/skillup/backend/internal/capture"
	"github.com/skillup-labs/skillup/backend/internal/config"
	"github.com/skillup-labs/skillup/backend/internal/identity"
	"github.com/skillup-labs/skillup/backend/internal/logging"
	"github.com/skillup-labs/skillup/backend/internal/playback"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
	"github.com/skillup-labs/skillup/backend/internal/service/reply"
	speechservice "github.com/skillup-labs/skillup/backend/internal/service/speech"
	"github.com/skillup-labs/skillup/backend/internal/store"
)

// talk is a local voice client: hold a spoken or typed conversation with the
// assistant through the default microphone and speaker.
//
//	r       start or stop recording
//	<text>  send a typed message
//	<enter> send the pending transcript
//	q       quit
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.Speech.Enabled {
		log.Fatal().Msg("OPENAI_API_KEY is required for the voice client")
	}
	if !cfg.AI.Enabled() {
		log.Fatal().Msg("ark credentials are required for the voice client")
	}

	speechSvc := speechservice.NewService(cfg.Speech)

	replySvc, err := reply.NewService(ctx, cfg.AI, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize reply service")
	}

	userID := os.Getenv("LOCAL_USER_ID")
	if userID == "" {
		userID = "local-user"
	}
	resolver := identity.StaticResolver{User: identity.User{ID: userID}}

	convoSvc := convoservice.NewService(store.NewMemory(), replySvc, resolver, log)

	speaker, err := playback.NewSpeaker(24000)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audio output")
	}
	defer speaker.Close()

	player := playback.NewController(playback.Config{
		Synthesizer: speechSvc,
		Player:      speaker,
		Voice:       cfg.Speech.Voice,
		Format:      "pcm",
		Logger:      log,
	})
	convoSvc.AttachSpeaker(player)

	mic, err := capture.NewDevice()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audio input")
	}
	defer mic.Close()

	var pendingMu sync.Mutex
	var pending string

	recorder := capture.NewController(capture.Config{
		Microphone:  mic,
		Transcriber: speechSvc,
		SampleRate:  16000,
		Timeout:     time.Duration(cfg.Speech.Timeout) * time.Second,
		OnText: func(text string) {
			pendingMu.Lock()
			pending = text
			pendingMu.Unlock()
			fmt.Printf("\n[you said] %s\n[enter to send, or type to replace]\n> ", text)
		},
		OnError: func(err error) {
			fmt.Printf("\n[capture error] %v\n> ", err)
		},
		Logger: log,
	})

	session, err := convoSvc.CreateSession(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}

	turns, _ := convoSvc.Turns(ctx, session.ID)
	for _, turn := range turns {
		fmt.Printf("[assistant] %s\n", turn.Content)
	}
	player.Speak(ctx, session.ID, turns[len(turns)-1].Content)
	player.Wait()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "q", "quit", "exit":
			recorder.Stop()
			player.Wait()
			return
		case "r", "record":
			if recorder.Recording() {
				recorder.Stop()
				fmt.Println("[recording stopped, transcribing...]")
			} else if err := recorder.Start(); err != nil {
				fmt.Printf("[capture error] %v\n", err)
			} else {
				fmt.Println("[recording, press r to stop]")
			}
		case "":
			pendingMu.Lock()
			text := pending
			pending = ""
			pendingMu.Unlock()
			if text == "" {
				break
			}
			send(ctx, convoSvc, player, session.ID, text)
		default:
			pendingMu.Lock()
			pending = ""
			pendingMu.Unlock()
			send(ctx, convoSvc, player, session.ID, line)
		}
		fmt.Print("> ")
	}
}

func send(ctx context.Context, svc *convoservice.Service, player *playback.Controller, sessionID, text string) {
	fmt.Printf("[you] %s\n", text)

	_, replyTurn, err := svc.Send(ctx, sessionID, text)
	if err != nil {
		switch {
		case errors.Is(err, convoservice.ErrSendInFlight):
			fmt.Println("[still sending the previous message]")
		case errors.Is(err, reply.ErrQuotaExceeded):
			fmt.Println("[the assistant is over its usage quota, try again later]")
		default:
			fmt.Printf("[send failed] %v\n", err)
		}
		return
	}

	fmt.Printf("[assistant] %s\n", replyTurn.Content)
	player.Wait()
}
