package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/handler/chat"
	speechhandler "github.com/skillup-labs/skillup/backend/internal/handler/speech"
	middlewarePkg "github.com/skillup-labs/skillup/backend/internal/middleware"
	convoservice "github.com/skillup-labs/skillup/backend/internal/service/convo"
)

// NewRouter wires HTTP routes to core services. speechSvc may be nil when no
// speech credentials are configured; the speech routes are simply absent.
func NewRouter(convoSvc *convoservice.Service, speechSvc speechhandler.SpeechService, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	r.Use(middlewarePkg.BearerToken)

	chatHandler := chat.New(convoSvc, log)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)

		if speechSvc != nil {
			speechHandler := speechhandler.New(speechSvc, log)
			speechHandler.RegisterRoutes(api, convoSvc)
		}
	})

	return r
}
