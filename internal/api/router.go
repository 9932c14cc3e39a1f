package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/lukasmoran/voicebridge/internal/api/handlers"
	"github.com/lukasmoran/voicebridge/internal/azure"
	"github.com/lukasmoran/voicebridge/internal/config"
	"github.com/lukasmoran/voicebridge/internal/events"
	"github.com/lukasmoran/voicebridge/internal/ws"
)

type Router struct {
	mux        *chi.Mux
	cfg        *config.Config
	translator azure.TranslationProvider
	speech     azure.SpeechProvider
	publisher  *events.Publisher
	hub        *ws.Hub
	logger     *zap.Logger
}

func NewRouter(cfg *config.Config, translator azure.TranslationProvider, speech azure.SpeechProvider, publisher *events.Publisher, hub *ws.Hub, logger *zap.Logger) *Router {
	return &Router{
		mux:        chi.NewRouter(),
		cfg:        cfg,
		translator: translator,
		speech:     speech,
		publisher:  publisher,
		hub:        hub,
		logger:     logger,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	// Health endpoint (no rate limit)
	health := handlers.NewHealthHandler()
	r.Get("/health", health.Healthz)

	translateH := handlers.NewTranslateHandler(rt.translator, rt.publisher, rt.hub, rt.logger)
	speechH := handlers.NewSpeechHandler(rt.speech, rt.cfg.Speech.Region, rt.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))

		r.Post("/translate", translateH.Translate)
		r.Post("/publish", translateH.Publish)

		r.Route("/speech", func(r chi.Router) {
			r.Get("/config", speechH.Config)
			r.Post("/token", speechH.Token)
			r.Post("/synthesize", speechH.Synthesize)
			r.Post("/recognize", speechH.Recognize)
		})
	})

	r.Get("/ws", rt.hub.ServeHTTP)

	// Static front end
	r.Get("/*", staticHandler(rt.cfg.Web.Dir))

	return r
}

// staticHandler serves the front-end page and assets, with index.html at /.
func staticHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			index := filepath.Join(dir, "index.html")
			if _, err := os.Stat(index); err == nil {
				http.ServeFile(w, r, index)
				return
			}
		}
		fs.ServeHTTP(w, r)
	}
}
