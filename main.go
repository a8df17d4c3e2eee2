// Command questiongrabber is the main entrypoint for the question-grabbing
// service. It:
//   - Loads configuration and initializes structured logging.
//   - Builds the grabbing engine for the configured channel and starts its
//     dispatch loop.
//   - Connects to Twitch chat and feeds the engine.
//   - Optionally connects to Postgres and archives grabbed questions.
//   - Exposes an HTTP server with the item list, filter toggles, /healthz,
//     and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DarkAutumn/QuestionGrabber/chat"
	"github.com/DarkAutumn/QuestionGrabber/config"
	"github.com/DarkAutumn/QuestionGrabber/db"
	"github.com/DarkAutumn/QuestionGrabber/grab"
	"github.com/DarkAutumn/QuestionGrabber/server"
	"github.com/DarkAutumn/QuestionGrabber/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production
	// relies on real env).
	_ = godotenv.Load(".env")

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	keywords, err := config.LoadKeywords(cfg.OptionsFile, cfg.TwitchChannel)
	if err != nil {
		slog.Error("keyword load failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("keywords loaded",
		slog.Int("grab", len(keywords.Grab)),
		slog.Int("highlight", len(keywords.Highlight)),
		slog.Int("ignore_users", len(keywords.IgnoreUsers)),
		slog.Int("ignore_text", len(keywords.IgnoreText)))

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("questiongrabber", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	directory := grab.NewChannelDirectory()
	grabber := grab.New(grab.Config{
		Keywords:         keywords,
		Directory:        directory,
		DetectDuplicates: cfg.DetectDuplicates,
		Tick:             cfg.TickInterval,
	})
	go grabber.Run(ctx)

	// Optional question archive.
	sqlDB := connectArchive(ctx, cfg)
	if sqlDB != nil {
		defer func() {
			if err := sqlDB.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		go db.StartQuestionArchiver(ctx, sqlDB, cfg.TwitchChannel, grabber.Appends())
	}

	go chat.Start(ctx, cfg, grabber, directory)

	go func() {
		if err := server.Start(ctx, grabber, sqlDB, cfg.TwitchChannel, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// connectArchive opens and migrates the question archive when DB_DSN is set.
// Archive problems never keep the service from starting; the engine runs
// without persistence.
func connectArchive(ctx context.Context, cfg *config.Config) *sql.DB {
	if cfg.DBDsn == "" {
		slog.Info("question archive disabled (DB_DSN not set)")
		return nil
	}
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open archive db", slog.Any("err", err))
		return nil
	}
	if err := db.Migrate(ctx, database); err != nil {
		slog.Error("failed to migrate archive db", slog.Any("err", err))
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
		return nil
	}
	slog.Info("question archive enabled")
	return database
}

// initLogging configures slog from LOG_LEVEL and LOG_FORMAT (text|json).
func initLogging() {
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
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}
