package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ragchat/app"
	"ragchat/config"
	"ragchat/logx"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	var logPath string
	flag.StringVar(&logPath, "log", "ragchat-chat.log", "File that receives log output while the client runs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// stdout belongs to the terminal UI
	logFile, err := tea.LogToFile(logPath, "ragchat")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open log file")
	}
	defer logFile.Close()
	logx.InitWithWriter(cfg.Log, logFile)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Msg("Chat session started")

	m := NewModel(application.Chat, application.Selector, application.Gateway.Supports, application.History, sessionID, cfg.QueryTimeout)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		log.Error().Err(err).Msg("Chat client exited with error")
	}
}
