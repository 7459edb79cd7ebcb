package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/flex_checkout/internal/backend"
	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/checkout"
	"github.com/congo-pay/flex_checkout/internal/config"
	"github.com/congo-pay/flex_checkout/internal/flex"
	"github.com/congo-pay/flex_checkout/internal/infra"
	"github.com/congo-pay/flex_checkout/internal/journal"
	"github.com/congo-pay/flex_checkout/internal/logging"
	"github.com/congo-pay/flex_checkout/internal/prompt"
	"github.com/congo-pay/flex_checkout/internal/viewer"
)

const exitFailed = 2

func main() {
	defaults := flag.String("defaults", "", "YAML file overriding the initial form values")
	slot := flag.String("slot", "cli", "outcome slot to submit into")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Error("build checkout", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	code := run(ctx, svc, prompt.NewSurveyDriver(), *defaults, *slot, cardform.SystemClock, os.Stdout)
	if code != 0 {
		cleanup()
		os.Exit(code)
	}
}

func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*checkout.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	var outcomes checkout.Store
	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, cleanup, err
	}
	if cache != nil {
		closers = append(closers, func() { _ = cache.Close() })
		outcomes = checkout.NewRedisStore(cache, cfg.OutcomeTTL)
	}

	var attempts journal.Repository
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}
	if db != nil {
		closers = append(closers, db.Close)
		if err := journal.EnsureSchema(ctx, db); err != nil {
			cleanup()
			return nil, cleanup, err
		}
		attempts = journal.NewPostgresRepository(db)
	}

	hc := infra.NewHTTPClient(cfg.BackendTimeout)
	tokenizer := flex.NewTokenizer(flex.NewClient(cfg.FlexBaseURL, hc), cfg.FlexProduction)
	svc, err := checkout.NewService(backend.New(cfg.BackendURL, hc), tokenizer, outcomes, attempts, logger)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}
	return svc, cleanup, nil
}

// run prompts for the card, submits it and prints the outcome tree. It
// returns the process exit code.
func run(ctx context.Context, svc *checkout.Service, d prompt.Driver, defaultsPath, slot string, clock cardform.Clock, out io.Writer) int {
	now := clock()
	initial := cardform.Defaults(now)
	if defaultsPath != "" {
		loaded, err := cardform.LoadDefaults(defaultsPath, initial)
		if err != nil {
			fmt.Fprintf(out, "load defaults: %v\n", err)
			return 1
		}
		initial = loaded
	}

	form := cardform.NewForm(initial, now)
	if err := prompt.Fill(ctx, d, form); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(out, "aborted")
			return 130
		}
		fmt.Fprintf(out, "prompt: %v\n", err)
		return 1
	}

	card := form.Values()
	if missing := card.Missing(); len(missing) > 0 {
		fmt.Fprintf(out, "missing fields: %v\n", missing)
		return 1
	}

	outcome := svc.Submit(ctx, slot, card)
	tree, err := viewer.Build(outcome)
	if err != nil {
		fmt.Fprintf(out, "render outcome: %v\n", err)
		return 1
	}
	if err := viewer.WriteText(out, tree); err != nil {
		return 1
	}
	if outcome.Failed() {
		return exitFailed
	}
	return 0
}
