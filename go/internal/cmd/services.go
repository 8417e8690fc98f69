package main

import (
	"context"
	"fmt"

	"github.com/egoritak/yesbut/go/internal/catalog"
	"github.com/egoritak/yesbut/go/internal/config"
	"github.com/egoritak/yesbut/go/internal/events"
	"github.com/egoritak/yesbut/go/internal/game"
	"github.com/egoritak/yesbut/go/internal/gateway"
	"github.com/egoritak/yesbut/go/internal/room"
	"github.com/egoritak/yesbut/go/internal/roomrpc"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const eventQueueSize = 1024

type Services struct {
	Registry  *room.Registry
	Gateway   *gateway.Service
	Rooms     *roomrpc.Service
	Publisher *events.AsyncPublisher
}

func setupServices(cfg config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Catalog + rules → Publisher → Connection manager → Registry → Gateway / RPC

	rules, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("invalid game rules: %w", err)
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("pairs", cat.Len()).Msg("card catalog loaded")

	sink, err := setupPublisher(cfg)
	if err != nil {
		return nil, err
	}
	publisher := events.NewAsyncPublisher(sink, eventQueueSize)

	connConfig := gateway.DefaultConnectionConfig()
	connConfig.MaxMessageSize = cfg.WSMaxMessageSize
	connConfig.CheckOrigin = originChecker(cfg.AllowedOrigins)
	cm := gateway.NewConnectionManager(connConfig)

	registry := room.NewRegistry(game.Deps{
		Catalog:   cat,
		Rules:     rules,
		Clock:     clockwork.NewRealClock(),
		Notifier:  cm,
		Publisher: publisher,
	})

	return &Services{
		Registry:  registry,
		Gateway:   gateway.NewService(cm, registry),
		Rooms:     roomrpc.NewService(registry),
		Publisher: publisher,
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

func setupPublisher(cfg config.Config) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		log.Info().Msg("NATS_URL not set, lifecycle events go to the log")
		return events.NewLogPublisher(), nil
	}

	jsConfig := events.DefaultJetStreamConfig()
	jsConfig.URL = cfg.NATSURL
	jsConfig.StreamName = cfg.NATSStream
	jsConfig.SubjectPrefix = cfg.NATSSubjectPrefix

	pub, err := events.NewJetStreamPublisher(jsConfig)
	if err != nil {
		return nil, fmt.Errorf("connect event publisher: %w", err)
	}
	return pub, nil
}

// Start launches the background workers
func (s *Services) Start(ctx context.Context) error {
	if err := s.Publisher.Start(ctx); err != nil {
		return fmt.Errorf("start event publisher: %w", err)
	}

	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped with error")
		}
	}()
	return nil
}

// Stop closes every room and flushes pending lifecycle events
func (s *Services) Stop() {
	s.Registry.Close()
	if err := s.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
}
