// Package app assembles the service from Settings: logger, store,
// reasoning client, assignment lock, telemetry, workflows and the HTTP
// handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/randalmurphal/taskmentor/internal/assign"
	"github.com/randalmurphal/taskmentor/internal/httpapi"
	"github.com/randalmurphal/taskmentor/internal/runlock"
	"github.com/randalmurphal/taskmentor/pkg/docstore"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/taskmentor/pkg/flowgraph/errors"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/observability"
)

// App is an assembled service. Close releases everything New opened.
type App struct {
	Settings Settings
	Logger   *slog.Logger
	Store    docstore.Store
	Runner   *assign.Runner
	Goals    *assign.GoalsService
	Handler  http.Handler

	closers []func(context.Context) error
}

// Option customizes New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	client    llm.Client
	store     docstore.Store
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithLLMClient uses c instead of the configured provider.
func WithLLMClient(c llm.Client) Option {
	return func(o *options) { o.client = c }
}

// WithStore uses st instead of the configured driver. The caller keeps
// ownership of st.
func WithStore(st docstore.Store) Option {
	return func(o *options) { o.store = st }
}

// New builds the service. On error anything already opened is closed.
func New(ctx context.Context, s Settings, opts ...Option) (_ *App, err error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := NewLogger(o.logOutput, s.Log)
	if err != nil {
		return nil, err
	}
	a := &App{Settings: s, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdown, err := observability.SetupProviders(ctx, observability.ProviderConfig{
		ServiceName: s.Telemetry.ServiceName,
		Exporter:    s.Telemetry.Exporter,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if a.Store, err = a.openStore(ctx, o.store); err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		factory, err := LLMProviders().Lookup(s.LLM.Provider)
		if err != nil {
			return nil, err
		}
		if client, err = factory(s.LLM); err != nil {
			return nil, err
		}
	}

	locker, err := a.openLocker(ctx)
	if err != nil {
		return nil, err
	}

	reasonerOpts := []assign.ReasonerOption{
		assign.WithReasonerLogger(logger),
		assign.WithRetry(fgerrors.NewRetryConfig(fgerrors.WithMaxAttempts(max(s.LLM.MaxAttempts, 1)))),
	}
	if s.LLM.Model != "" {
		reasonerOpts = append(reasonerOpts, assign.WithModel(s.LLM.Model))
	}
	if s.Telemetry.Metrics {
		reasonerOpts = append(reasonerOpts, assign.WithReasonerMetrics(observability.NewMetricsRecorder()))
	}

	repos := assign.NewRepos(a.Store, nil)
	a.Runner, err = assign.NewRunner(repos, assign.NewReasoner(client, reasonerOpts...), logger,
		flowgraph.WithObservabilityLogger(logger),
		flowgraph.WithMetrics(s.Telemetry.Metrics),
		flowgraph.WithTracing(s.Telemetry.Tracing),
	)
	if err != nil {
		return nil, fmt.Errorf("compile workflows: %w", err)
	}
	a.Goals = assign.NewGoalsService(repos.Goals)

	a.Handler = httpapi.New(httpapi.Deps{
		Runner:  a.Runner,
		Goals:   a.Goals,
		Chats:   repos.Chats,
		Locker:  locker,
		LockTTL: s.LockTTL,
		Logger:  logger,
	}).Handler()

	logger.Info("service assembled",
		slog.String("store", s.Store.Driver),
		slog.String("llm_provider", llm.ProviderName(client)),
		slog.Bool("redis_lock", s.RedisAddr != ""),
		slog.String("telemetry", s.Telemetry.Exporter),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, given docstore.Store) (docstore.Store, error) {
	if given != nil {
		return given, nil
	}
	factory, err := StoreDrivers().Lookup(a.Settings.Store.Driver)
	if err != nil {
		return nil, err
	}
	st, err := factory(ctx, a.Settings.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.Settings.Store.Driver, err)
	}
	a.closers = append(a.closers, st.Close)
	return st, nil
}

func (a *App) openLocker(ctx context.Context) (runlock.Locker, error) {
	if a.Settings.RedisAddr == "" {
		return runlock.NewMemory(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.Settings.RedisAddr})
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", a.Settings.RedisAddr, err)
	}
	return runlock.NewRedis(client, ""), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
