package main

import (
	"context"
	"log"
	"os"

	"github.com/example/bugtracker-chat/modules/activity"
	"github.com/example/bugtracker-chat/modules/api"
	"github.com/example/bugtracker-chat/modules/broadcast"
	"github.com/example/bugtracker-chat/modules/bug"
	"github.com/example/bugtracker-chat/modules/cache"
	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/example/bugtracker-chat/modules/ratelimit"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	cfg := loadConfig()

	log.Println("=== Bug Tracker Chat ===")
	log.Printf("HTTP Port: %s", cfg.Port)
	log.Printf("Database: %s", cfg.DBPath)
	log.Printf("Client URL: %s", cfg.ClientURL)
	if cfg.RedisAddr != "" {
		log.Printf("Redis: %s (cache TTL %s, %d req per %s)", cfg.RedisAddr, cfg.CacheTTL, cfg.RateLimitRequests, cfg.RateLimitWindow)
	} else {
		log.Println("Redis: disabled (no cache, no rate limiting)")
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	logger := app.Logger()

	// Plugins start before modules, so the bug module sees a live cache.
	if cfg.RedisAddr != "" {
		cachePlugin := cache.NewPluginModule(cfg.RedisAddr, cache.DefaultPrefix, cfg.CacheTTL, logger)
		if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
			log.Fatalf("Failed to register cache plugin: %v", err)
		}
	}

	broadcastModule := broadcast.NewModule(logger)
	chatModule := chat.NewModule(broadcastModule.Hub(), logger, chat.WithMaxHistory(cfg.ChatHistorySize))
	activityModule := activity.NewModule(logger)
	bugModule := bug.NewModule(cfg.DBPath, cfg.DBDebug, logger)
	apiModule := api.NewModule(api.Config{
		Port:          cfg.Port,
		ClientURL:     cfg.ClientURL,
		MaxFrameBytes: cfg.MaxFrameBytes,
	}, logger)
	apiModule.SetHub(broadcastModule.Hub())
	apiModule.SetDispatcher(chatModule.Hub())

	app.Register(broadcastModule)
	app.Register(chatModule)
	app.Register(activityModule)
	app.Register(bugModule)

	if cfg.RedisAddr != "" {
		limiter := ratelimit.NewModule(logger,
			ratelimit.WithRedisAddr(cfg.RedisAddr),
			ratelimit.WithLimit(cfg.RateLimitRequests, cfg.RateLimitWindow),
		)
		app.Register(limiter)
		apiModule.SetRateLimiter(limiter.Handler())
	}

	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg Config) {
	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%s", cfg.Port)
	log.Println("Endpoints:")
	log.Println("  GET    /health                        - Health check")
	log.Println("  GET    /chat                          - WebSocket chat (upgrade required)")
	log.Println("  GET    /api/bugs                      - List bugs (?status=open|in-progress|resolved)")
	log.Println("  POST   /api/bugs                      - File a bug")
	log.Println("  GET    /api/bugs/:id                  - Get a bug")
	log.Println("  PUT    /api/bugs/:id                  - Update a bug")
	log.Println("  DELETE /api/bugs/:id                  - Delete a bug")
	log.Println("  GET    /api/v1/rooms                  - Rooms with history size and members")
	log.Println("  GET    /api/v1/rooms/:room/history    - Room history (?limit=N)")
	log.Println("  GET    /api/v1/chat/stats             - Chat and activity statistics")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")
}
