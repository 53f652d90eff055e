package main

import (
	"fmt"
	"io"

	"github.com/axiomesh/ballot"
	"github.com/axiomesh/ballot/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
)

func start(ctx *cli.Context) error {
	s, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	// the screen belongs to the ui, log records still reach the log file
	s.Logger.SetOutput(io.Discard)

	p := tea.NewProgram(tui.New(ctx.Context, s.Session), tea.WithAltScreen(), tea.WithContext(ctx.Context))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run voting client failed: %w", err)
	}
	return nil
}

func printVersion() {
	fmt.Printf("Ballot version: %s-%s-%s\n", ballot.CurrentVersion, ballot.CurrentBranch, ballot.CurrentCommit)
	fmt.Printf("App build date: %s\n", ballot.BuildDate)
	fmt.Printf("System version: %s\n", ballot.Platform)
	fmt.Printf("Golang version: %s\n", ballot.GoVersion)
	fmt.Println()
}
