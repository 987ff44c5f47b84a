// Package container provides dependency injection for the sandbox collector
package container

import (
	"fmt"

	"github.com/siteguard/widget-go/internal/application/services"
	schema "github.com/siteguard/widget-go/internal/infrastructure/database"
	"github.com/siteguard/widget-go/internal/infrastructure/messaging"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/performance"
	store "github.com/siteguard/widget-go/internal/infrastructure/persistence/collector"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
)

// Container holds the collector's singleton services and infrastructure dependencies
type Container struct {
	// Services
	CollectorService *services.CollectorService

	// Infrastructure Dependencies
	DB          *database.DB
	LiveHub     *messaging.LiveHub
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
}

// Options configure NewContainer.
type Options struct {
	Driver  string
	DSN     string
	Tenants []string
}

// NewContainer opens the database, creates the schema and wires all singleton services
func NewContainer(opts Options, logger *logging.ChanneledLogger) (*Container, error) {
	db, err := database.NewConnectionWithLogger(opts.Driver, opts.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open collector database: %w", err)
	}
	if err := schema.NewTableCreator().CreateSchema(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create collector schema: %w", err)
	}

	hub := messaging.NewLiveHub(logger)
	perf := performance.NewTracker(performance.DefaultTrackerConfig())

	collector := services.NewCollectorService(services.CollectorDeps{
		Telemetry: store.NewSQLTelemetryRepository(db, logger),
		Consents:  store.NewSQLConsentRepository(db, logger),
		Chats:     store.NewSQLChatRepository(db, logger),
		Responder: services.NewChatResponder(),
		Publisher: hub,
		Perf:      perf,
		Tenants:   opts.Tenants,
	}, logger)

	return &Container{
		CollectorService: collector,
		DB:               db,
		LiveHub:          hub,
		Logger:           logger,
		PerfTracker:      perf,
	}, nil
}

// Close releases the database.
func (c *Container) Close() error {
	return c.DB.Close()
}
