package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/fetch"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/runtime"
	"github.com/mailsift/mailsift/internal/store"
)

type fetchConfig struct {
	cfgPath         string
	count           int
	newerThanDays   int
	newerThanMonths int
	query           string
	pageSize        int
	rps             int
}

func main() {
	cfg := parseFetchFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-fetch failed", "error", err)
		os.Exit(1)
	}
}

func parseFetchFlags() fetchConfig {
	cfgPath := flag.String("config", "mailsift.toml", "path to the mailsift config file")
	count := flag.Int("count", 0, "fetch the N most recent messages")
	newerDays := flag.Int("newer-than-days", 0, "fetch messages newer than this many days")
	newerMonths := flag.Int("newer-than-months", 0, "fetch messages newer than this many months")
	query := flag.String("query", "", "raw Gmail query to fetch by")
	pageSize := flag.Int("page-size", 0, "Gmail list page size (<=500, 0 = config default)")
	rps := flag.Int("rps", 0, "max requests per second (0 = config default)")
	flag.Parse()

	return fetchConfig{
		cfgPath:         *cfgPath,
		count:           *count,
		newerThanDays:   *newerDays,
		newerThanMonths: *newerMonths,
		query:           *query,
		pageSize:        *pageSize,
		rps:             *rps,
	}
}

func run(cfg fetchConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := config.Load(cfg.cfgPath)
	if err != nil {
		return err
	}

	if err := store.EnsureDatabase(ctx, appCfg.Database); err != nil {
		return fmt.Errorf("ensure database: %w", err)
	}
	st, err := store.NewPostgres(ctx, appCfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client, err := runtime.NewGmailClient(ctx, appCfg.Gmail.CredentialsDir, runtime.ScopeReadonly)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	rps := cfg.rps
	if rps <= 0 {
		rps = appCfg.Fetch.RPS
	}
	bucket := rate.NewTokenBucket(rps)
	defer bucket.Stop()

	pageSize := cfg.pageSize
	if pageSize <= 0 {
		pageSize = appCfg.Fetch.PageSize
	}

	svc := fetch.NewService(client, st, bucket, runtime.DefaultLogger())
	spec := fetch.Spec{
		Count:           cfg.count,
		NewerThanDays:   cfg.newerThanDays,
		NewerThanMonths: cfg.newerThanMonths,
		Query:           cfg.query,
		PageSize:        pageSize,
	}
	if _, err := svc.Run(ctx, spec); err != nil {
		return fmt.Errorf("run fetch: %w", err)
	}
	return nil
}
