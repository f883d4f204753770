// Package app assembles the assessment process from configuration: analyzer
// suite, pipeline, report sinks, HTTP transport and the optional workflow
// worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"credit-assessment/internal/analyzers/builtin"
	awsclients "credit-assessment/internal/common/aws"
	"credit-assessment/internal/common/camunda"
	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/database"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/observability"
	"credit-assessment/internal/notify"
	"credit-assessment/internal/pipeline"
	"credit-assessment/internal/report"
	"credit-assessment/internal/server"
	"credit-assessment/internal/service"
	"credit-assessment/internal/store"
	assessapplication "credit-assessment/internal/workers/credit/assess-application"
	"credit-assessment/pkg/registry"
)

// Options override the pieces tests need to control.
type Options struct {
	// TraceWriter receives spans when tracing is enabled; stdout by default.
	TraceWriter io.Writer
	// AWS replaces the SDK clients built from the notifications region.
	AWS *awsclients.Clients
	// SkipWorker leaves the Zeebe worker out even when camunda is enabled.
	SkipWorker bool
}

type App struct {
	Config   *config.Config
	Policies *registry.Registry
	Service  *service.Service
	Server   *server.Server

	zeebe    *camunda.Client
	worker   *camunda.Worker
	closers  []func() error
	shutdown func(context.Context) error
	obs      *observability.Observability
	logger   logger.Logger
}

// Build wires every component cfg enables. On error the partially built
// resources are released.
func Build(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (a *App, err error) {
	a = &App{Config: cfg, logger: log}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	if opts.TraceWriter == nil {
		opts.TraceWriter = os.Stdout
	}
	a.shutdown, err = observability.InitTracer(cfg.App.Name, cfg.App.Version, cfg.Tracing.Enabled, opts.TraceWriter)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.obs = observability.New("credit-assessment")

	a.Policies = registry.New()
	if cfg.Policy.Path != "" {
		doc, err := a.Policies.LoadFile(cfg.Policy.Path)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		log.Info("policy loaded", map[string]interface{}{"version": doc.Policy.Version, "path": cfg.Policy.Path})
	}
	policy := a.Policies.Active()

	suite, err := builtin.NewSuite(cfg.Analyzers, policy, log)
	if err != nil {
		return nil, fmt.Errorf("build analyzer suite: %w", err)
	}

	orch, err := pipeline.New(suite, pipeline.Options{
		QuoteRate:     cfg.Policy.QuoteRate,
		Observability: a.obs,
		Synthesizer: report.New(report.Options{
			Policy:   policy,
			Currency: cfg.Policy.Currency,
		}, log),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	sinks, reader, checks, err := a.buildStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	notifiers, err := a.buildNotifiers(ctx, cfg, opts, log)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, notifiers...)

	a.Service = service.New(orch, service.Options{
		MinCreditScore:   cfg.Policy.MinCreditScore,
		MaxCreditScore:   cfg.Policy.MaxCreditScore,
		TracingEnabled:   cfg.Tracing.Enabled,
		TraceURLTemplate: cfg.Tracing.TraceURLTemplate,
		Sinks:            sinks,
		Reports:          reader,
		View:             service.NewConfigView(cfg, report.DefaultModelVersion, policy.Version),
		Observability:    a.obs,
	}, log)

	if cfg.Camunda.Enabled && !opts.SkipWorker {
		if err := a.buildWorker(cfg, log); err != nil {
			return nil, err
		}
		checks["zeebe"] = a.zeebe.HealthCheck
	}

	a.Server = server.New(cfg.Server, a.Service, server.Options{ReadyChecks: checks}, log)
	return a, nil
}

// buildStorage returns the report sinks, the reader used for lookups and the
// readiness checks of the enabled backends.
func (a *App) buildStorage(ctx context.Context, cfg *config.Config, log logger.Logger) ([]service.Sink, service.ReportReader, map[string]server.Check, error) {
	var (
		sinks    []service.Sink
		repo     store.Repository
		sqlStore *store.SQLStore
		reader   service.ReportReader
		checks   = map[string]server.Check{}
	)

	if cfg.Storage.Driver != "none" {
		client, err := database.Open(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("%s unreachable: %w", client.Driver, err)
		}

		sqlStore, err = store.NewSQLStore(client.DB, client.Driver, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqlStore.Migrate(ctx); err != nil {
			return nil, nil, nil, err
		}
		repo = sqlStore
		checks[client.Driver] = client.Ping
	}

	if cfg.Database.Redis.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		a.closers = append(a.closers, rdb.Close)
		cached := store.NewCachedRepository(rdb.Client, repo, rdb.ReportTTL, log)
		sinks = append(sinks, cached)
		reader = cached
		checks["redis"] = rdb.Ping
	} else if sqlStore != nil {
		sinks = append(sinks, sqlStore)
		reader = sqlStore
	}

	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, nil, nil, err
		}
		idx := store.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index, log)
		if err := idx.EnsureIndex(ctx); err != nil {
			log.Warn("search index not ready", map[string]interface{}{"error": err.Error()})
		}
		sinks = append(sinks, idx)
		checks["elasticsearch"] = es.Ping
	}

	log.Info("report storage configured", map[string]interface{}{
		"driver":        cfg.Storage.Driver,
		"redis":         cfg.Database.Redis.Enabled,
		"elasticsearch": cfg.Database.Elasticsearch.Enabled,
	})
	return sinks, reader, checks, nil
}

func (a *App) buildNotifiers(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) ([]service.Sink, error) {
	n := cfg.Notifications
	if !n.SNS.Enabled && !n.SES.Enabled {
		return nil, nil
	}

	clients := opts.AWS
	if clients == nil {
		var err error
		if clients, err = awsclients.NewClients(ctx, n.Region); err != nil {
			return nil, err
		}
	}

	var sinks []service.Sink
	if n.SNS.Enabled {
		p, err := notify.NewDecisionPublisher(clients.SNS, n.SNS.TopicARN, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, p)
	}
	if n.SES.Enabled {
		m, err := notify.NewReviewMailer(clients.SES, n.SES.FromEmail, n.SES.Recipients, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, m)
	}
	return sinks, nil
}

func (a *App) buildWorker(cfg *config.Config, log logger.Logger) error {
	client, err := camunda.NewClient(camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		return err
	}
	a.zeebe = client
	a.closers = append(a.closers, client.Close)

	wcfg := assessapplication.LoadConfig(cfg.Camunda)
	handler := assessapplication.NewHandler(wcfg, a.Service, log)
	a.worker = camunda.NewWorker(client.Zeebe(), assessapplication.TaskType, camunda.WorkerOptions{
		MaxJobsActive:  wcfg.MaxJobsActive,
		Timeout:        wcfg.Timeout,
		RequestTimeout: wcfg.RequestTimeout,
	}, handler, log)
	return nil
}

// Run serves until ctx is cancelled, then shuts down within the configured
// timeout.
func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		a.worker.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(a.Config.Server.ShutdownTimeout) * time.Millisecond
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown stops the transport and the worker, then releases every backend.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		errs = append(errs, a.Server.Shutdown(ctx))
	}
	if a.worker != nil {
		a.worker.Stop()
		a.worker = nil
	}
	errs = append(errs, a.closeAll())
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	a.obs.Shutdown()
	a.logger.Info("shutdown complete", nil)
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
