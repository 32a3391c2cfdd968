package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"expenses/internal/cli"
	"expenses/internal/client"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/tui"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateClient)

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	out, closeLog, err := cli.OpenLogOutput(cfg.TUILogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	logger := cli.SetupLogger(cfg, applog.ComponentTUI, out)

	api, err := client.New(cfg.APIURL, client.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	logger.Info("Starting expenses TUI", "api_url", api.BaseURL())
	p := tea.NewProgram(tui.New(ctx, api, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error("TUI exited with error", applog.FieldError, err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
