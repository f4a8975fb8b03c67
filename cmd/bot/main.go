package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"card_bot/internal/bot"
	"card_bot/internal/catalog"
	"card_bot/internal/config"
	"card_bot/internal/history"
	"card_bot/internal/picker"
	"card_bot/internal/poster"
	"card_bot/internal/scheduler"
	"card_bot/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cards, err := catalog.NewLoader(http.DefaultClient).Load(ctx, catalog.Source{
		Location: cfg.CardsPath,
		Format:   cfg.CardsFormat,
	})
	if err != nil {
		log.Error("load cards", "source", cfg.CardsPath, "error", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg)
	if err != nil {
		log.Error("open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	hist := history.Open(ctx, store, log)

	client, err := bot.NewClient(cfg.BotToken, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}
	if err := client.RegisterCommands(); err != nil {
		log.Warn("register commands", "error", err)
	}

	post := poster.New(client, hist, picker.New(), cards, cfg.ChannelID, cfg.NoRepeatDays, log)
	hour, minute := cfg.PostClock()
	sched := scheduler.New(post, hist, hour, minute, cfg.Location(), log)
	b := bot.New(client, post, sched, cfg, log)

	log.Info("starting bot",
		"cards", len(cards),
		"no_repeat_days", cfg.NoRepeatDays,
		"post_time", cfg.PostTime,
		"timezone", cfg.Timezone,
		"channel_id", cfg.ChannelID,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		b.Run(gctx)
		return nil
	})
	_ = g.Wait()

	log.Info("bot stopped")
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == config.DriverJSON {
		return storage.NewJSON(cfg.StatePath)
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	return storage.NewSQLite(cfg.DatabasePath)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
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
