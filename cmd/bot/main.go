package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"voxbot/internal/app/events"
	"voxbot/internal/app/tts/runner"
	"voxbot/internal/app/voice"
	"voxbot/internal/infrastructure/config"
	"voxbot/internal/infrastructure/platform/discord"
	"voxbot/internal/usecase/commands"
	"voxbot/internal/usecase/handle_message"
	"voxbot/internal/usecase/notifications"
	"voxbot/internal/usecase/tts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "voxbot",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	ttsSvc, err := tts.NewService(cfg.Language, logger.With("component", "tts"))
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	adapter, err := discord.NewAdapter(discord.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.GuildID,
		Logger:  logger.With("component", "discord"),
	})
	if err != nil {
		logger.Fatal("discord session", "err", err)
	}

	voiceMgr := voice.NewDiscordManager(adapter.Session(), logger.With("component", "voice"))

	bus := events.NewBus()
	go notifications.NewEventLogger(logger.With("component", "events")).Run(ctx, bus)

	speakQueue := runner.New(runner.Config{
		Synthesizer: ttsSvc,
		Player:      voiceMgr,
		Bus:         bus,
		MaxLength:   cfg.MaxSpeakLength,
		Logger:      logger.With("component", "queue"),
	})
	speakQueue.Start(ctx)

	registry := commands.NewRegistry()
	registry.Register(commands.NewJoinCommand(voiceMgr, adapter, cfg.VoiceChannelID))
	registry.Register(commands.NewLeaveCommand(voiceMgr))
	registry.Register(commands.NewSayCommand(speakQueue))
	adapter.SetCommands(registry)

	watcher := handle_message.NewInteractor(speakQueue, cfg.TextChannelID, cfg.SpeakNameFormat)
	adapter.SetHandler(watcher.Handle)

	logger.Info("starting bot", "voice", ttsSvc.Voice().Code, "watched_channel", cfg.TextChannelID)

	go func() {
		if err := adapter.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("discord adapter", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	if err := voiceMgr.Leave(); err != nil {
		logger.Warn("leave voice on shutdown", "err", err)
	}
	_ = speakQueue.Close()

	logger.Info("bot stopped")
}
