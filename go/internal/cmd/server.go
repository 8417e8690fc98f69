package main

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/egoritak/yesbut/go/internal/config"
	"github.com/egoritak/yesbut/go/internal/roomrpc"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register services
	registerServices(mux, services)

	// Add health check and service info endpoints
	setupHealthCheck(mux)
	setupInfo(mux, services)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    cfg.Addr(),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// WebSocket game gateway
	services.Gateway.RegisterRoutes(mux)

	// Room inspection service
	roomServicePath, roomServiceHandler := roomrpc.NewHandler(services.Rooms)
	mux.Handle(roomServicePath, roomServiceHandler)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupInfo(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		info := map[string]any{
			"service": "yesbut",
			"rooms":   services.Registry.Len(),
			"gateway": services.Gateway.GetStats(),
			"events":  services.Publisher.Stats(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(info); err != nil {
			log.Error().Err(err).Msg("failed to write service info")
		}
	})
}

// originChecker mirrors the CORS origin list for WebSocket upgrades
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
