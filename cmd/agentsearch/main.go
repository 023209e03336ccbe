// Command agentsearch is an interactive terminal client for the listing
// search API. Every typed line replaces the search box content; results
// print once the debounced search settles.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/domain/search/sorting"
	logpkg "github.com/kailas-cloud/agentmart/internal/logger"
	"github.com/kailas-cloud/agentmart/internal/session"
	"github.com/kailas-cloud/agentmart/internal/version"
	"github.com/kailas-cloud/agentmart/pkg/client"
)

type options struct {
	url            string
	apiKey         string
	timeout        time.Duration
	debounce       time.Duration
	minQueryLength int
	limit          int
	sort           string
	logLevel       string
	version        bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("agentsearch", flag.ContinueOnError)
	fs.StringVarP(&o.url, "url", "u", envOr("AGENTMART_URL", "http://localhost:8080"), "API base URL")
	fs.StringVar(&o.apiKey, "api-key", os.Getenv("AGENTMART_API_KEY"), "API key sent as a Bearer token")
	fs.DurationVar(&o.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	fs.DurationVar(&o.debounce, "debounce", session.DefaultDebounce, "quiet period before a search is sent")
	fs.IntVar(&o.minQueryLength, "min-query-length", session.DefaultMinQueryLength,
		"shortest query that triggers a search; shorter non-empty input clears results")
	fs.IntVarP(&o.limit, "limit", "n", filters.DefaultLimit, "results per page")
	fs.StringVarP(&o.sort, "sort", "s", "", "result order: relevance, newest, updated, rating, downloads, trending")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.BoolVarP(&o.version, "version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "agentsearch:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Println("agentsearch", version.String())
		return nil
	}

	logger, err := logpkg.NewCLILogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.New(opts.url,
		client.WithAPIKey(opts.apiKey),
		client.WithTimeout(opts.timeout),
		client.WithUserAgent("agentsearch/"+version.Version),
		client.WithLogger(clientLogger(opts.logLevel)),
	)
	if err != nil {
		return err
	}

	initial, err := filters.New(filters.Params{Limit: opts.limit, SortBy: sorting.Order(opts.sort)})
	if err != nil {
		return err
	}

	sess := session.New(newFetcher(c), session.Options{
		Debounce:       opts.debounce,
		MinQueryLength: opts.minQueryLength,
		Filters:        &initial,
		Logger:         logger,
	})
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newREPL(sess, c, os.Stdout)
	r.println(help)
	logger.Debug("session started", zap.String("url", opts.url))
	return r.run(ctx, os.Stdin)
}

// clientLogger returns a stderr slog logger for the API client, or nil when
// level is invalid; the zap logger has already rejected that case.
func clientLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
