package main

import (
	"context"
	"log"
	"os"

	"github.com/Singh2236/chatLocalAnom/config"
	"github.com/Singh2236/chatLocalAnom/modules/api"
	"github.com/Singh2236/chatLocalAnom/modules/broadcast"
	"github.com/Singh2236/chatLocalAnom/modules/history"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Anonymous Room Chat - Fiber + EventBus ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	historyModule := history.NewModule(cfg.History(), app.Logger().WithModule("history"))
	broadcastModule := broadcast.NewModule(
		app.Logger().WithModule("broadcast"),
		broadcast.WithHistoryLimit(cfg.HistoryLimit),
	)
	apiModule, err := api.NewModule(cfg.API(), app.Logger().WithModule("api"))
	if err != nil {
		log.Fatalf("Failed to create api module: %v", err)
	}

	// The engine is not exposed via ServiceContainer
	apiModule.SetEngine(broadcastModule.Engine())

	// Register modules with the framework.
	// - history: store + recent service + MessageAccepted consumer
	// - broadcast: engine loop, depends on history, emits MessageAccepted
	// - api: Fiber HTTP/WebSocket server driving the engine
	app.Register(historyModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
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

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("History backend: %s", cfg.HistoryBackend)
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                      - Health check")
	log.Println("  GET    /api/v1/rooms                - Open rooms by member count")
	log.Println("  GET    /api/v1/rooms/:code/history  - Recent messages of a room")
	log.Println("  POST   /upload                      - Upload an image (field \"image\")")
	log.Println("  GET    /uploads/*                   - Uploaded images")
	log.Println("  GET    /                            - Web client")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Println("  Frames: {\"event\": <name>, \"data\": <payload>}")
	log.Println("  Client events: join-room, chat-message, chat-image")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
