package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/sanadlab/migmate/cli"
	"github.com/sanadlab/migmate/internal/tui"
	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/migmate"
)

func main() {
	cfg, err := cli.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	app, err := migmate.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Modes that print to stdout or run unattended skip the TUI.
	if cfg.NoTUI || cfg.PrintDiff || cfg.DryRun || cfg.FixDiff || cfg.Undo || cfg.Redo {
		os.Exit(runHeadless(app, cfg))
	}

	model := tui.New(app)
	p := tea.NewProgram(model)
	model.SetProgram(p)
	_, err = p.Run()
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func runHeadless(app *migmate.App, cfg *cli.Config) int {
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Applies stream per-file results instead.
	var bar *ui.ProgressBar
	if cfg.Undo || cfg.Redo {
		app.SetProgressCallback(func(current, total int) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Reverting")
				bar.Start()
			}
			bar.Set(current)
		})
	}

	summary, err := app.Execute(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var e *migmate.DetailedError
		if errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return 1
	}

	title := "Summary"
	switch {
	case cfg.Undo:
		title = "Undo"
	case cfg.Redo:
		title = "Redo"
	}
	if !cfg.PrintDiff && !cfg.FixDiff {
		ui.PrintSummary(title, summary)
	}
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}
