package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/objectdesk/objectdesk/internal/core"
)

// programViewport forwards scroll requests from the controller goroutines
// into the program's message loop.
type programViewport struct {
	p *tea.Program
}

func (v programViewport) ScrollIntoView(key string) {
	v.p.Send(scrollMsg{key: key})
}

// Run starts the terminal browser on a connected engine and blocks until the
// user quits or ctx is cancelled. startURL, when set, is opened instead of
// the remembered location.
func Run(ctx context.Context, engine *core.Engine, startURL string) error {
	ctrl := engine.NewBrowser(nil)
	defer ctrl.Close()

	settings := engine.Settings()
	dest, err := os.Getwd()
	if err != nil {
		dest = "."
	}

	m := NewModel(Options{
		Context:     ctx,
		Controller:  ctrl,
		Events:      engine.Events(),
		Engine:      engine,
		StartURL:    startURL,
		Bucket:      settings.Session.Bucket,
		Prefix:      settings.Session.Prefix,
		DownloadDir: dest,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	ctrl.SetViewport(programViewport{p: p})

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
