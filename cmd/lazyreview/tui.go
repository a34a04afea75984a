package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kraitsura/lazyreview/pkg/config"
	"github.com/kraitsura/lazyreview/pkg/ui"
	"github.com/kraitsura/lazyreview/pkg/watcher"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive review interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func runTUI() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m := ui.NewModel(ui.Deps{
		Config:  a.cfg,
		Queue:   a.store,
		Engine:  a.engine,
		Resolve: a.resolve,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay automatically when connectivity returns.
	var hosts []string
	for _, pc := range a.cfg.Providers {
		hosts = append(hosts, pc.EffectiveHost())
	}
	if len(hosts) > 0 {
		monitor := watcher.NewMonitor(hosts)
		go monitor.Run(ctx, func() {
			p.Send(ui.ReconnectMsg{})
		})
	}

	// Pick up config edits without restarting.
	err = watcher.WatchFile(ctx, a.cfgPath, func() {
		cfg, err := config.Load(a.cfgPath)
		if err != nil {
			a.log.WithError(err).Warn("config reload failed")
			return
		}
		p.Send(ui.ConfigReloadedMsg{Config: cfg})
	})
	if err != nil {
		a.log.WithError(err).Warn("config watch unavailable")
	}

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
