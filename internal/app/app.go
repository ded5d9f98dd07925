package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/adapters/events"
	"github.com/atviroplatforma/appcore/internal/adapters/httpapi"
	sqliteadapter "github.com/atviroplatforma/appcore/internal/adapters/sqlite"
	"github.com/atviroplatforma/appcore/internal/adapters/sqlite/gormsqlite"
	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/ports"
	"github.com/atviroplatforma/appcore/internal/core/usecase"
	"github.com/atviroplatforma/appcore/migrations"
)

type Config struct {
	Addr             string
	DBPath           string
	EntitiesPath     string
	BootstrapAPIKey  string
	BootstrapTenant  string
	BootstrapUserID  string
	BootstrapKeyName string
	BootstrapRoles   []string
	WebhookURL       string
	WebhookSecret    string
	Logger           zerolog.Logger
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewServer wires the platform: storage, the frozen action registry built
// from the entity declarations, the event bus with its delivery subscribers,
// the outbox relay and the HTTP surface.
func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	logger := cfg.Logger

	rawDefs, err := os.ReadFile(cfg.EntitiesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read entity declarations: %w", err)
	}
	entities, err := usecase.LoadEntityDefinitions(rawDefs)
	if err != nil {
		return nil, nil, err
	}

	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	recordStore := sqliteadapter.NewRecordStore(db)
	apiKeyRepo := sqliteadapter.NewAPIKeyRepository(db)
	auditRepo := sqliteadapter.NewAuditTrailRepository(db)
	outboxRepo := sqliteadapter.NewOutboxRepository(db)

	schemas, err := usecase.NewSchemaService(entities)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	registry := usecase.NewActionRegistry(logger)
	entityService := usecase.NewEntityService(recordStore, schemas)
	for _, def := range entities {
		if err := entityService.RegisterActions(registry, def); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	bus := usecase.NewEventBus(logger)
	for _, sub := range []domain.Subscriber{
		events.NewLogSubscriber(logger),
		events.NewAuditSubscriber(auditRepo),
		events.NewOutboxSubscriber(outboxRepo),
	} {
		if err := bus.Subscribe(sub); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(logger)
	if cfg.WebhookURL != "" {
		publisher = events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, 0)
	}
	relay := usecase.NewOutboxRelay(outboxRepo, publisher, logger, 2*time.Second, 100)
	relay.Start(context.Background())

	dispatcher := usecase.NewActionDispatcher(registry, bus, logger)
	authService := usecase.NewAuthService(apiKeyRepo)
	auditService := usecase.NewAuditService(auditRepo)

	if cfg.BootstrapAPIKey != "" {
		if err := bootstrapAPIKey(apiKeyRepo, cfg); err != nil {
			_ = relay.Close()
			_ = db.Close()
			return nil, nil, err
		}
	}

	handler := httpapi.NewHandler(dispatcher, authService, auditService, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{relay, busCloser{bus}, db}}, nil
}

type busCloser struct {
	bus *usecase.EventBus
}

func (c busCloser) Close() error {
	c.bus.Drain()
	return nil
}

func bootstrapAPIKey(repo *sqliteadapter.APIKeyRepository, cfg Config) error {
	tenant := cfg.BootstrapTenant
	if tenant == "" {
		tenant = "default"
	}
	name := cfg.BootstrapKeyName
	if name == "" {
		name = "bootstrap"
	}
	userID := cfg.BootstrapUserID
	if userID == "" {
		userID = name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := repo.Upsert(ctx, domain.APIKey{
		TokenHash:  usecase.HashToken(cfg.BootstrapAPIKey),
		TenantID:   tenant,
		UserID:     userID,
		Name:       name,
		Roles:      cfg.BootstrapRoles,
		CallerType: domain.CallerService,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("bootstrap api key: %w", err)
	}
	return nil
}
