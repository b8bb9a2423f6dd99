package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bugtracker-chat/modules/activity"
	"github.com/example/bugtracker-chat/modules/broadcast"
	"github.com/example/bugtracker-chat/modules/bug"
	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	defaultMessage = "Something went wrong!"
	connIDLength   = 21
)

// Config holds the HTTP server settings.
type Config struct {
	Port          string
	ClientURL     string
	MaxFrameBytes int
}

// Dispatcher feeds connection lifecycle and client events to the chat hub.
type Dispatcher interface {
	Connect(ctx context.Context, connID string) error
	Dispatch(ctx context.Context, ev chat.Event) error
	Disconnect(ctx context.Context, connID string) error
}

// ClientHub tracks WebSocket clients and delivers frames to them.
type ClientHub interface {
	Register(client *broadcast.Client)
	Unregister(connID string)
	EmitTo(connID, event string, payload any)
	ClientCount() int
	RoomClientCount(room string) int
}

// APIModule serves the REST API and the /chat WebSocket endpoint.
type APIModule struct {
	app        *fiber.App
	config     Config
	chat       chat.ChatPort
	bugs       bug.BugPort
	activity   activity.ActivityPort
	hub        ClientHub
	dispatcher Dispatcher
	limiter    fiber.Handler
	newID      func() string
	logger     types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*APIModule)(nil)
	_ mono.DependentModule       = (*APIModule)(nil)
	_ mono.HealthCheckableModule = (*APIModule)(nil)
)

// NewModule creates a new APIModule.
func NewModule(config Config, logger types.Logger) *APIModule {
	if config.Port == "" {
		config.Port = "5000"
	}
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = 64 * 1024
	}
	return &APIModule{
		config: config,
		logger: logger.WithModule("api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the modules whose service containers the API calls.
func (m *APIModule) Dependencies() []string {
	return []string{"chat", "bug", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.chat = chat.NewChatAdapter(container)
	case "bug":
		m.bugs = bug.NewBugAdapter(container)
	case "activity":
		m.activity = activity.NewActivityAdapter(container)
	}
}

// SetHub injects the WebSocket client hub.
func (m *APIModule) SetHub(hub ClientHub) {
	m.hub = hub
}

// SetDispatcher injects the chat event dispatcher.
func (m *APIModule) SetDispatcher(d Dispatcher) {
	m.dispatcher = d
}

// SetRateLimiter installs middleware in front of the /api routes.
func (m *APIModule) SetRateLimiter(h fiber.Handler) {
	m.limiter = h
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	switch {
	case m.chat == nil:
		return fmt.Errorf("chat dependency not set")
	case m.bugs == nil:
		return fmt.Errorf("bug dependency not set")
	case m.activity == nil:
		return fmt.Errorf("activity dependency not set")
	case m.hub == nil:
		return fmt.Errorf("client hub not set")
	case m.dispatcher == nil:
		return fmt.Errorf("chat dispatcher not set")
	}

	gen, err := nanoid.Standard(connIDLength)
	if err != nil {
		return fmt.Errorf("failed to create id generator: %w", err)
	}
	m.newID = gen

	m.app = m.buildApp()

	addr := ":" + m.config.Port
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", addr, "client_url", m.config.ClientURL)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.config.Port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

func (m *APIModule) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Bug Tracker Chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		UnescapePath:          true,
		ReadTimeout:           10 * time.Second,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.config.ClientURL,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	m.registerRoutes(app)
	return app
}

// errorHandler is the single REST error responder.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := defaultMessage

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		if e.Message != "" {
			message = e.Message
		}
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{Message: message})
}
