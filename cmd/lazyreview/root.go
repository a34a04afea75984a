package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kraitsura/lazyreview/pkg/config"
	"github.com/kraitsura/lazyreview/pkg/model"
	"github.com/kraitsura/lazyreview/pkg/provider"
	"github.com/kraitsura/lazyreview/pkg/queue"
	"github.com/kraitsura/lazyreview/pkg/secrets"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lazyreview",
	Short: "A terminal client for reviewing pull requests across code hosts",
	Long: `lazyreview lists pull requests from GitHub, GitLab, Bitbucket,
Azure DevOps, and Gitea, and lets you review them from the terminal.
Review actions taken while offline are queued locally and replayed when
connectivity returns.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(tuiCmd, queueCmd, authCmd, versionCmd)
}

// app bundles everything a command needs.
type app struct {
	cfg     *config.Config
	cfgPath string
	store   *queue.Store
	secrets *secrets.Store
	engine  *queue.Engine
	resolve queue.ResolveFunc
	log     *logrus.Logger
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// buildApp loads config and opens the queue and secret stores.
func buildApp() (*app, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	queuePath, err := config.QueuePath()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(queuePath)
	if err != nil {
		return nil, err
	}

	secretsDir, err := config.SecretsDir()
	if err != nil {
		store.Close()
		return nil, err
	}
	sec := secrets.NewStore(secretsDir)

	log := newLogger()

	resolve := func(t model.ProviderType) (provider.Provider, error) {
		pc, ok := cfg.ProviderFor(t)
		if !ok {
			return nil, fmt.Errorf("provider %s is not configured", t)
		}
		host := pc.EffectiveHost()
		token, err := sec.Get(secrets.Account(t, host))
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, fmt.Errorf("no token stored for %s (run: lazyreview auth login %s)", t, t)
		}
		return provider.New(t, host, token)
	}

	engineOpts := []queue.EngineOption{queue.WithLogger(log)}
	if cfg.ReplayConcurrency > 0 {
		engineOpts = append(engineOpts, queue.WithGroupConcurrency(cfg.ReplayConcurrency))
	}
	engine := queue.NewEngine(store, resolve, engineOpts...)

	return &app{
		cfg:     cfg,
		cfgPath: path,
		store:   store,
		secrets: sec,
		engine:  engine,
		resolve: resolve,
		log:     log,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
