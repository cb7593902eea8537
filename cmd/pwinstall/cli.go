package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lemachinarbo/RockShell/internal/config"
	"github.com/lemachinarbo/RockShell/internal/domain"
	installengine "github.com/lemachinarbo/RockShell/internal/engine/install"
	"github.com/lemachinarbo/RockShell/internal/logging"
	"github.com/lemachinarbo/RockShell/internal/resolve"
	"github.com/lemachinarbo/RockShell/internal/services/download"
	"github.com/lemachinarbo/RockShell/internal/services/github"
	"github.com/lemachinarbo/RockShell/internal/services/pwapi"
	"github.com/lemachinarbo/RockShell/internal/ui"
	"github.com/lemachinarbo/RockShell/internal/web"
)

func runInstall(ctx context.Context, v *viper.Viper, cfgFile string, st streams) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return usageError{err}
	}

	runID := uuid.NewString()
	logger := logging.NewLogger(logging.LoggerConfig{Debug: cfg.Debug, File: cfg.LogFile, RunID: runID})
	defer func() { _ = logger.Sync() }()

	mode := "interactive"
	if cfg.Lazy {
		mode = "lazy"
	}
	printer := ui.NewPrinter(st.out, st.errOut, cfg.Quiet)
	deps, err := buildDeps(cfg, logger, printer.Progress)
	if err != nil {
		return err
	}
	printer.Header("pwinstall "+Version, [][2]string{
		{"Docroot", cfg.Docroot},
		{"Host", cfg.Host},
		{"Mode", mode},
		{"Config", cfg.ConfigFile},
		{"Run", runID},
	})
	eventLog := logging.NewEventLogger(logging.Config{
		Always:  cfg.LogAlways,
		Docroot: cfg.Docroot,
		Version: Version,
		Mode:    mode,
		Host:    cfg.Host,
		Profile: cfg.Profile,
		RunID:   runID,
	})

	engine := installengine.New(installengine.Options{
		Docroot:     cfg.Docroot,
		Hints:       cfg.Hints,
		DefaultHost: cfg.DefaultHost(),
		Cascade: resolve.Cascade{
			Lazy:      cfg.Lazy,
			Overrides: cfg.Overrides,
			Defaults:  cfg.Defaults,
		},
		Debug:     cfg.Debug,
		CheckDDEV: cfg.CheckDDEV,
		InDDEV:    cfg.InDDEV,
	}, deps)

	logger.Info("run started", zap.String("docroot", cfg.Docroot), zap.String("mode", mode))
	runErr := engine.Run(ctx, func(ev domain.Event) {
		eventLog.Record(ev)
		printer.Handle(ev)
	})
	if runErr != nil {
		eventLog.MarkFailure()
		logger.Error("run failed", zap.Error(runErr))
	}

	res, logErr := eventLog.Finalize()
	if logErr != nil {
		fmt.Fprintln(st.errOut, logErr)
	}
	if res.Written {
		fmt.Fprintf(st.errOut, "Installer log saved to %s\n", res.Path)
	}
	if runErr == nil {
		return nil
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(st.errOut, "Installation cancelled.")
	}
	return reportedError{runErr}
}

func buildDeps(cfg config.Config, logger *zap.Logger, progress func(done, total int64)) (installengine.Deps, error) {
	browser, err := web.New(
		web.WithLogger(logger.Named("web")),
		web.WithInsecureTLS(cfg.Insecure),
		web.WithUserAgent("pwinstall/"+Version),
	)
	if err != nil {
		return installengine.Deps{}, err
	}

	gh := github.NewClient(nil)
	if cfg.GitHubAPI != "" {
		if gh, err = gh.WithBaseURL(cfg.GitHubAPI); err != nil {
			return installengine.Deps{}, usageError{fmt.Errorf("github_api: %w", err)}
		}
	}
	fetcher := download.New(nil, gh, logger.Named("download"))
	fetcher.Assets = gh
	fetcher.Progress = progress

	return installengine.Deps{
		Browser: browser,
		Console: ui.NewConsole(os.Stdin, os.Stdout),
		Fetcher: fetcher,
		Locator: pwapi.NewLocator(),
		Log:     logger.Named("install"),
	}, nil
}
