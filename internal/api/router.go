package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP router with all routes mounted.
func NewRouter(handler *Handler, corsAllowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(corsAllowedOrigins))

	r.Post("/upload_audio/", handler.UploadAudio)
	r.Post("/ask-gpt/", handler.AskGPT)
	r.Get("/transcripts/{room_id}/", handler.GetTranscripts)
	r.Get("/summary_and_action/{room_id}/{username}/", handler.GetSummary)
	r.Post("/assign-trello-tasks/", handler.AssignTrelloTasks)
	r.Post("/livekit/token/", handler.LiveKitToken)

	r.Post("/users/", handler.CreateUser)
	r.Get("/users/details/", handler.GetUserDetails)
	r.Get("/meetings/{username}/", handler.GetMeetings)

	r.Get("/healthz", handler.GetHealth)
	r.Get("/ws/speech/", handler.HandleSpeechWS)

	return r
}

// corsMiddleware applies the configured allowed origins to every response
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		originSet[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || originSet[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
