package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/app"
	"github.com/mikutaniguchi/ticket-collection/internal/config"
	"github.com/mikutaniguchi/ticket-collection/internal/tui"
)

var (
	userFlag = flag.String("user", "", "id of the user whose tickets to browse")
	logFlag  = flag.String("log", "", "write logs to this file instead of discarding them")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("ticketbrowse: %v", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.MustLoad()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		return fmt.Errorf("--user: %w", err)
	}

	log, closeLog, err := setupLogger(*logFlag)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer application.Stop()

	model := tui.NewModel(ctx, application.Tickets, userID, tui.Config{
		TicketSettle:  cfg.Carousel.TicketSettle,
		ImageSettle:   cfg.Carousel.ImageSettle,
		SwipeFraction: cfg.Carousel.SwipeThreshold,
	})

	// The terminal belongs to the program, so logs never go to stdout.
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

func setupLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return log, func() { _ = f.Close() }, nil
}
