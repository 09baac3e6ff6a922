// Command a2a-server runs the A2A protocol server (spec §4.10, C11).
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/a2a-server/internal/config"
	"github.com/agent-protocol/a2a-server/internal/handler"
	"github.com/agent-protocol/a2a-server/internal/httpserver"
	"github.com/agent-protocol/a2a-server/internal/pushnotify"
	"github.com/agent-protocol/a2a-server/internal/taskmanager"
	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/executor"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

// Version information, set during build.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := &cli.App{
		Name:    "a2a-server",
		Usage:   "Agent-to-Agent (A2A) protocol server",
		Version: Version,
		Commands: []*cli.Command{
			serveCommand(),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cli.AppHelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}

USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}}
   {{if .Commands}}
COMMANDS:
{{range .Commands}}{{if not .HideHelp}}   {{join .Names ", "}}{{ "\t"}}{{.Usage}}{{ "\n" }}{{end}}{{end}}{{end}}{{if .VisibleFlags}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}{{if .Version}}
VERSION:
   {{.Version}}
   {{end}}
`

	return app
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the A2A JSON-RPC HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to an a2a-server.yaml config file"},
			&cli.StringFlag{Name: "host", Usage: "Override the configured bind host"},
			&cli.IntFlag{Name: "port", Usage: "Override the configured bind port"},
			&cli.StringFlag{Name: "agent-card", Usage: "Path to a JSON agent card file (required)"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if h := c.String("host"); h != "" {
		cfg.Host = h
	}
	if p := c.Int("port"); p != 0 {
		cfg.Port = p
	}

	cardPath := c.String("agent-card")
	if cardPath == "" {
		return fmt.Errorf("serve: --agent-card is required")
	}
	card, err := loadAgentCard(cardPath)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger := slog.Default()

	taskStore := store.NewInMemoryTaskStore()

	pushMgr := pushnotify.New(taskStore, pushnotify.WebhookConfig{
		Timeout:     time.Duration(cfg.WebhookTimeoutSeconds * float64(time.Second)),
		MaxAttempts: cfg.MaxWebhookAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseSeconds * float64(time.Second)),
		MaxDelay:    time.Duration(cfg.RetryMaxSeconds * float64(time.Second)),
	}, logger)
	defer pushMgr.Close()

	taskMgr := taskmanager.New(taskStore, pushMgr, cfg.MaxHistoryLength, logger)

	var agentExecutor executor.AgentExecutor = &executor.EchoExecutor{}

	h := handler.New(taskStore, taskMgr, pushMgr, agentExecutor, card, nil, handler.Options{
		SendTimeout:        time.Duration(cfg.SyncSendTimeoutSeconds * float64(time.Second)),
		CancelGrace:        100 * time.Millisecond,
		EventQueueCapacity: cfg.EventQueueCapacity,
		MaxHistoryLength:   cfg.MaxHistoryLength,
		StreamingEnabled:   cfg.StreamingEnabled,
		PushNotifications:  cfg.PushNotificationsEnabled,
	}, logger)

	srv := httpserver.New(h, httpserver.Options{
		MountPrefix:        cfg.MountPrefix,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Info("starting a2a-server", "addr", addr, "version", Version, "commit", GitCommit, "built", BuildTime)
	return http.ListenAndServe(addr, srv.Engine())
}

func loadAgentCard(path string) (a2a.AgentCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return a2a.AgentCard{}, fmt.Errorf("read agent card: %w", err)
	}
	var card a2a.AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return a2a.AgentCard{}, fmt.Errorf("parse agent card: %w", err)
	}
	return card, nil
}
