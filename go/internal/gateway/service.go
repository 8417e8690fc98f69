package gateway

import (
	"context"
	"net/http"

	"github.com/egoritak/yesbut/go/internal/room"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway: it accepts WebSocket connections, feeds
// their frames to the rooms and delivers room events back.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	dispatcher        *Dispatcher
}

// NewService creates the gateway around an existing connection manager.
// The manager is created first because sessions need it as their notifier.
func NewService(cm *ConnectionManager, registry *room.Registry) *Service {
	dispatcher := NewDispatcher(registry, cm)
	cm.SetHandler(dispatcher)

	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		dispatcher:        dispatcher,
	}
}

// Start runs the outbound delivery loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	s.connectionManager.Start(ctx)

	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "yesbut_gateway"
	stats["status"] = "running"
	return stats
}
