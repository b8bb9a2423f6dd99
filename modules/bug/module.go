package bug

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/bugtracker-chat/domain/bug"
	"github.com/example/bugtracker-chat/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module provides bug tracking services via GORM + SQLite.
type Module struct {
	db          *gorm.DB
	repo        *Repository
	service     *Service
	cachePlugin *cache.PluginModule
	dbPath      string
	debug       bool
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
)

// NewModule creates a bug module backed by the SQLite database at dbPath.
func NewModule(dbPath string, debug bool, logger types.Logger) *Module {
	if dbPath == "" {
		dbPath = "bugs.db"
	}
	return &Module{
		dbPath: dbPath,
		debug:  debug,
		logger: logger.WithModule("bug"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "bug"
}

// SetPlugin receives plugin instances from the mono framework before Start.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "cache" {
		return
	}
	if cachePlugin, ok := plugin.(*cache.PluginModule); ok {
		m.cachePlugin = cachePlugin
		m.logger.Info("Cache plugin injected")
	}
}

// Start opens the database, runs migrations and builds the service.
func (m *Module) Start(_ context.Context) error {
	logLevel := logger.Silent
	if m.debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db
	m.repo = NewRepository(db)

	if err := m.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// The plugin starts before modules, so Port is ready here.
	var c cache.CacheService
	if m.cachePlugin != nil {
		c = m.cachePlugin.Port()
	}
	m.service = NewService(m.repo, c, m.logger)

	m.logger.Info("Module started", "db_path", m.dbPath, "cache", c != nil)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	m.logger.Info("Database connection closed")
	return nil
}

// Health pings the database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}
	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
			"cached": m.cachePlugin != nil,
		},
	}
}

// Service returns the bug service.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreate, json.Unmarshal, json.Marshal, m.createBug,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGet, json.Unmarshal, json.Marshal, m.getBug,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGet, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceList, json.Unmarshal, json.Marshal, m.listBugs,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceList, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdate, json.Unmarshal, json.Marshal, m.updateBug,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDelete, json.Unmarshal, json.Marshal, m.deleteBug,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDelete, err)
	}

	m.logger.Info("Registered services", "services", "services.bug.{create,get,list,update,delete}")
	return nil
}

func (m *Module) createBug(ctx context.Context, req CreateBugRequest, _ *mono.Msg) (domain.Bug, error) {
	b, err := m.service.Create(ctx, req)
	if err != nil {
		return domain.Bug{}, err
	}
	return *b, nil
}

func (m *Module) getBug(ctx context.Context, req GetBugRequest, _ *mono.Msg) (domain.Bug, error) {
	b, err := m.service.Get(ctx, req.ID)
	if err != nil {
		return domain.Bug{}, err
	}
	return *b, nil
}

func (m *Module) listBugs(ctx context.Context, req ListBugsRequest, _ *mono.Msg) (ListBugsResponse, error) {
	bugs, err := m.service.List(ctx, req.Status)
	if err != nil {
		return ListBugsResponse{}, err
	}
	return ListBugsResponse{Bugs: bugs, Total: len(bugs)}, nil
}

func (m *Module) updateBug(ctx context.Context, req UpdateBugRequest, _ *mono.Msg) (domain.Bug, error) {
	b, err := m.service.Update(ctx, req)
	if err != nil {
		return domain.Bug{}, err
	}
	return *b, nil
}

func (m *Module) deleteBug(ctx context.Context, req DeleteBugRequest, _ *mono.Msg) (DeleteBugResponse, error) {
	if err := m.service.Delete(ctx, req.ID); err != nil {
		return DeleteBugResponse{}, err
	}
	return DeleteBugResponse{Deleted: true, ID: req.ID}, nil
}
