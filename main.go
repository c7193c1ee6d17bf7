// Command backend is the main entrypoint for the prediction-studio API and
// background workers. It:
//   - Loads configuration and initializes structured logging.
//   - Loads the settings file and the local prediction draft store.
//   - Bootstraps the Twitch session (broadcaster id + latest prediction) and
//     starts the snapshot poller.
//   - Optionally connects the chat announcer when bot credentials are set.
//   - Exposes the HTTP API with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/prediction-studio/backend/chat"
	"github.com/onnwee/prediction-studio/backend/config"
	"github.com/onnwee/prediction-studio/backend/crypto"
	"github.com/onnwee/prediction-studio/backend/draft"
	"github.com/onnwee/prediction-studio/backend/server"
	"github.com/onnwee/prediction-studio/backend/session"
	"github.com/onnwee/prediction-studio/backend/settings"
	"github.com/onnwee/prediction-studio/backend/suggest"
	"github.com/onnwee/prediction-studio/backend/telemetry"
	"github.com/onnwee/prediction-studio/backend/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load("backend/.env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("prediction-studio", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Optional at-rest encryption for tokens in the settings file
	var enc crypto.Encryptor
	if cfg.TokenEncKey != "" {
		enc, err = crypto.NewAESEncryptor(cfg.TokenEncKey)
		if err != nil {
			slog.Error("invalid TOKEN_ENC_KEY", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("settings token encryption enabled")
	}

	// Settings store (the streamer's credentials and tokens)
	settingsStore := settings.NewStore(cfg.SettingsPath, enc)
	if _, err := settingsStore.Load(); err != nil {
		slog.Error("failed to load settings", slog.String("path", cfg.SettingsPath), slog.Any("err", err))
		os.Exit(1)
	}

	// Draft store (local prediction drafts)
	draftStore := draft.NewStore(cfg.DraftsPath)
	if err := draftStore.Load(); err != nil {
		slog.Error("failed to load drafts", slog.String("path", cfg.DraftsPath), slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session manager over the Helix client
	sess := session.NewManager(settingsStore, &twitchapi.Client{})
	sess.PollInterval = cfg.PollInterval

	// Chat announcer (optional)
	if cfg.ChatEnabled() {
		channel := settingsStore.Current().ChannelName
		if channel != "" {
			announcer := chat.NewAnnouncer(cfg.TwitchBotUsername, cfg.TwitchBotOAuth, channel)
			sess.Notifier = announcer
			go announcer.Start(ctx)
		} else {
			slog.Info("chat announcer disabled (no channel configured yet)")
		}
	} else {
		slog.Info("chat announcer disabled (missing bot creds)")
	}

	// Bring the session up from whatever is on disk; not-ready is not fatal.
	bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := sess.Bootstrap(bootCtx); err != nil {
		slog.Warn("session bootstrap failed", slog.Any("err", err))
	}
	bootCancel()

	// Background snapshot poller
	go sess.StartPoller(ctx)

	// Draft suggestions (optional, needs an OpenAI key in settings)
	var generator *suggest.Generator
	if key := settingsStore.Current().OpenAIAPIKey; key != "" {
		generator = &suggest.Generator{APIKey: key, Model: cfg.OpenAIModel}
	} else {
		slog.Info("draft suggestions disabled (no OPENAI_API_KEY in settings)")
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (API/health/status/metrics)
	handlers := server.NewHandlers(cfg, settingsStore, draftStore, sess, generator)
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
