package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bbifather/student-orders-api/internal/bot"
	"github.com/bbifather/student-orders-api/pkg/config"
	"github.com/bbifather/student-orders-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Telegram.BotToken == "" {
		logr.Sugar().Fatalw("telegram bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to telegram", "error", err)
	}

	b := bot.New(api, bot.Config{
		WebAppURL:      cfg.Telegram.WebAppURL,
		AdminChatID:    cfg.Telegram.AdminChatID,
		APIBaseURL:     cfg.Bot.APIBaseURL,
		APIPrefix:      cfg.APIPrefix,
		SupportContact: cfg.Telegram.SupportContact,
		PollTimeout:    cfg.Bot.PollTimeout,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Sugar().Fatalw("bot stopped", "error", err)
	}
	logr.Sugar().Infow("bot shut down")
}
