package realtime

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewServer builds the auxiliary HTTP server that upgrades /ws
// requests into Hub connections. It is a separate listener from the
// line-protocol TCP port since the wire protocols don't share a
// framing; go-chi/cors guards the upgrade endpoint's allow-list.
func NewServer(hub *Hub, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ws", hub.ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
