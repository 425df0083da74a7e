package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailsift/mailsift/internal/apply"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/rules"
	"github.com/mailsift/mailsift/internal/runtime"
	"github.com/mailsift/mailsift/internal/store"
)

type applyConfig struct {
	cfgPath   string
	rulesPath string
	dryRun    bool
	rps       int
}

func main() {
	cfg := parseApplyFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-apply failed", "error", err)
		os.Exit(1)
	}
}

func parseApplyFlags() applyConfig {
	cfgPath := flag.String("config", "mailsift.toml", "path to the mailsift config file")
	rulesPath := flag.String("rules", "", "path to the ruleset file (default: config)")
	dryRun := flag.Bool("dry-run", false, "log the plan; skip modifications")
	rps := flag.Int("rps", 0, "max requests per second (0 = config default)")
	flag.Parse()

	return applyConfig{
		cfgPath:   *cfgPath,
		rulesPath: *rulesPath,
		dryRun:    *dryRun,
		rps:       *rps,
	}
}

func run(cfg applyConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := config.Load(cfg.cfgPath)
	if err != nil {
		return err
	}
	rulesPath := cfg.rulesPath
	if rulesPath == "" {
		rulesPath = appCfg.Rules
	}
	ruleset, err := rules.Load(rulesPath)
	if err != nil {
		return err
	}

	st, err := store.NewPostgres(ctx, appCfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client, err := runtime.NewGmailClient(ctx, appCfg.Gmail.CredentialsDir, runtime.ScopeModify)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	rps := cfg.rps
	if rps <= 0 {
		rps = appCfg.Fetch.RPS
	}
	bucket := rate.NewTokenBucket(rps)
	defer bucket.Stop()

	svc := apply.NewService(client, st, bucket, runtime.DefaultLogger())
	if _, err := svc.Run(ctx, apply.Spec{Ruleset: ruleset, DryRun: cfg.dryRun}); err != nil {
		return fmt.Errorf("run apply: %w", err)
	}
	return nil
}
