package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/config"
	"github.com/skillup-labs/skillup/backend/internal/handler"
	speechhandler "github.com/skillup-labs/skillup/backend/internal/handler/speech"
	"github.com/skillup-labs/skillup/backend/internal/identity"
	"github.com/skillup-labs/skillup/backend/internal/logging"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
	"github.com/skillup-labs/skillup/backend/internal/service/reply"
	speechservice "github.com/skillup-labs/skillup/backend/internal/service/speech"
	"github.com/skillup-labs/skillup/backend/internal/store"
)

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

	// Message persistence: Supabase when configured, in-memory otherwise.
	var turnStore store.Store
	if cfg.Supabase.Enabled() {
		supabaseStore, err := store.NewSupabase(cfg.Supabase.URL, cfg.Supabase.InsertKey(), cfg.Supabase.Table)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize supabase store")
		}
		turnStore = supabaseStore
		log.Info().Str("table", cfg.Supabase.Table).Msg("supabase message store initialized")
	} else {
		turnStore = store.NewMemory()
		log.Warn().Msg("supabase credentials missing, messages persist in memory only")
	}

	// Identity: bearer tokens verified against Supabase auth when configured,
	// otherwise a fixed local identity from the environment.
	var resolver identity.Resolver
	if cfg.Supabase.Enabled() {
		resolver, err = identity.NewSupabaseResolver(cfg.Supabase.URL, cfg.Supabase.AnonKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize supabase auth")
		}
	} else {
		resolver = identity.StaticResolver{User: identity.User{
			ID:    os.Getenv("LOCAL_USER_ID"),
			Email: os.Getenv("LOCAL_USER_EMAIL"),
		}}
	}

	if !cfg.AI.Enabled() {
		log.Fatal().Msg("ark credentials missing, reply generation cannot start")
	}
	replySvc, err := reply.NewService(ctx, cfg.AI, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize reply service")
	}
	log.Info().Str("model", cfg.AI.Model).Msg("reply service initialized")

	convoSvc := convoservice.NewService(turnStore, replySvc, resolver, log)

	var speechSvc speechhandler.SpeechService
	if cfg.Speech.Enabled {
		speechSvc = speechservice.NewService(cfg.Speech)
		log.Info().
			Str("transcribe_model", cfg.Speech.TranscribeModel).
			Str("tts_model", cfg.Speech.SpeechModel).
			Msg("speech service initialized")
	} else {
		log.Warn().Msg("speech credentials missing, voice endpoints disabled")
	}

	router := handler.NewRouter(convoSvc, speechSvc, log)

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("skillup backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
