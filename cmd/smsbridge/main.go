package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsbridge/internal/bus"
	"smsbridge/internal/config"
	"smsbridge/internal/domain"
	"smsbridge/internal/recognition"
	"smsbridge/internal/reply"
	"smsbridge/internal/session"
	"smsbridge/internal/twilio"
	"smsbridge/internal/webhook"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "smsbridge",
		Short:   "smsbridge: Twilio SMS to intent-engine bridge",
		Long:    "smsbridge receives Twilio message webhooks, resolves per-number conversation sessions, runs intent recognition and routes replies back to the sender.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.smsbridge/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file. A missing file falls back to defaults
// with a warning; an invalid file (including partial credentials) is fatal.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("config not found, using defaults", "path", cfgPath)
			cfg := config.Defaults()
			cfg.Sessions.DBPath = config.ExpandPath(cfg.Sessions.DBPath)
			cfg.Recognition.IntentsDir = config.ExpandPath(cfg.Recognition.IntentsDir)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and intents directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			intentsDir := config.ExpandPath(cfg.Recognition.IntentsDir)
			if err := os.MkdirAll(intentsDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "intents", intentsDir)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook bridge",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger = newLogger(cfg.General.LogLevel)

	// Graceful shutdown on signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.NewSQLiteStore(cfg.Sessions.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver := session.NewResolver(store, logger)

	client := twilio.NewClient(twilio.ClientConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		Logger:     logger,
	})
	if cfg.Degraded() {
		logger.Warn("no credentials set in the configuration, outbound send is disabled; " +
			"provide twilio.accountSid and twilio.authToken to enable replies")
	} else if cfg.Twilio.ValidateOnStart {
		if err := client.CheckCredentials(ctx); err != nil {
			return fmt.Errorf("twilio credential check: %w", err)
		}
		logger.Info("twilio credentials verified")
	}

	recognizer, err := buildRecognizer(cfg)
	if err != nil {
		return err
	}
	logger.Info("recognizer selected", "name", recognizer.Name())

	intake := bus.New(cfg.General.EventBuffer, logger)
	defer intake.Close()

	var stream *webhook.EventStream
	sink := domain.EventSink(intake)
	if cfg.Server.EventStream {
		stream = webhook.NewEventStream(logger)
		sink = fanoutSink{intake: intake, stream: stream}
	}

	dispatcher := reply.NewDispatcher(client, logger)
	responder := reply.NewResponder(intake, dispatcher, logger)
	go responder.Run(ctx)

	handler := webhook.NewHandler(webhook.HandlerConfig{
		Sessions:   resolver,
		Recognizer: recognizer,
		Sink:       sink,
		Logger:     logger,
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Endpoint
	}

	provider := webhook.NewProvider(webhook.ProviderConfig{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Handler:     handler,
		Stream:      stream,
		MetricsPath: metricsPath,
		Logger:      logger,
	})
	return provider.Start(ctx)
}

// fanoutSink forwards recognized events to the intake and mirrors them onto
// the operator event stream.
type fanoutSink struct {
	intake *bus.Intake
	stream *webhook.EventStream
}

func (s fanoutSink) Dispatch(ctx context.Context, ev *domain.RecognizedEvent, sess *domain.Session) {
	s.stream.Broadcast(ev)
	s.intake.Dispatch(ctx, ev, sess)
}

// buildRecognizer picks the remote engine when an endpoint is configured and
// falls back to the local keyword matcher otherwise.
func buildRecognizer(cfg *config.Config) (domain.Recognizer, error) {
	if cfg.Recognition.Endpoint != "" {
		return recognition.NewHTTPRecognizer(recognition.HTTPConfig{
			Endpoint: cfg.Recognition.Endpoint,
			APIKey:   cfg.Recognition.APIKey,
			Timeout:  time.Duration(cfg.Recognition.TimeoutSeconds) * time.Second,
			Logger:   logger,
		}), nil
	}

	patterns, err := recognition.LoadPatterns(cfg.Recognition.IntentsDir, logger)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		logger.Warn("no intent patterns loaded, all messages will match the fallback intent",
			"dir", cfg.Recognition.IntentsDir)
	}
	return recognition.NewKeywordRecognizer(patterns, logger), nil
}

func sendCmd() *cobra.Command {
	var from, to, body, media string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a one-off outbound message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Degraded() {
				return fmt.Errorf("cannot send: no twilio credentials configured")
			}

			client := twilio.NewClient(twilio.ClientConfig{
				AccountSID: cfg.Twilio.AccountSID,
				AuthToken:  cfg.Twilio.AuthToken,
				Logger:     logger,
			})
			receipt, err := client.Send(cmd.Context(), domain.OutboundMessage{
				From:     from,
				To:       to,
				Body:     body,
				MediaURL: media,
			})
			if err != nil {
				return err
			}
			fmt.Printf("sent: sid=%s status=%s\n", receipt.SID, receipt.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "provider phone number to send from")
	cmd.Flags().StringVar(&to, "to", "", "destination phone number")
	cmd.Flags().StringVar(&body, "body", "", "message text")
	cmd.Flags().StringVar(&media, "media", "", "optional media URL (MMS)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("body")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration mode and session count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			mode := "full"
			if cfg.Degraded() {
				mode = "degraded (inbound only)"
			}
			fmt.Printf("credentials: %s\n", mode)
			fmt.Printf("webhook:     %s:%d%s\n", cfg.Server.Host, cfg.Server.Port, webhook.EndpointPath)

			store, err := session.NewSQLiteStore(cfg.Sessions.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.CountSessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("sessions:    %d\n", count)
			return nil
		},
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
