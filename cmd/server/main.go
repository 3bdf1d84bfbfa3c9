// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/config"
	"github.com/feedpilot/feedpilot-backend/internal/db"
	"github.com/feedpilot/feedpilot-backend/internal/enrich"
	"github.com/feedpilot/feedpilot-backend/internal/handler"
	"github.com/feedpilot/feedpilot-backend/internal/ingest"
	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/logging"
	"github.com/feedpilot/feedpilot-backend/internal/publish"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
	"github.com/feedpilot/feedpilot-backend/internal/scheduler"
	"github.com/feedpilot/feedpilot-backend/internal/selection"
	"github.com/feedpilot/feedpilot-backend/internal/service"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	postRepo := &repository.PostRepository{DB: conn}
	logRepo := &repository.LogRepository{DB: conn}
	recorder := audit.NewRecorder(logRepo, logger)

	var transport publish.Transport
	var exporter publish.AuditExporter = publish.NoopAuditExporter{}
	if amqpConn, err := amqp.Dial(cfg.AMQPURL); err != nil {
		logger.WithError(err).Warn("AMQP unavailable, using in-memory transport")
		transport = publish.NewInMemoryTransport()
	} else {
		defer amqpConn.Close()
		transport, err = publish.NewAMQPTransport(amqpConn)
		if err != nil {
			logger.WithError(err).Fatal("Failed to set up publish transport")
		}
		exporter, err = publish.NewAMQPAuditExporter(amqpConn)
		if err != nil {
			logger.WithError(err).Fatal("Failed to set up audit exporter")
		}
	}

	machine := &lifecycle.Machine{
		Posts:     postRepo,
		Relevance: enrich.KeywordRelevance{},
		Captions:  enrich.NewCaptioner(enrich.NewSafetyValidator()),
		Images:    enrich.NewImageSearcher(cfg.ImageSearchURL, postRepo),
		Audit:     recorder,
	}
	ingestor := &ingest.Ingestor{
		Campaigns:    campaignRepo,
		Posts:        postRepo,
		Fetcher:      ingest.NewHTTPFetcher(),
		Audit:        recorder,
		FetchTimeout: cfg.FetchTimeout,
	}
	policy := &selection.Policy{
		Posts:     postRepo,
		Machine:   machine,
		Ingestor:  ingestor,
		Audit:     recorder,
		Tolerance: cfg.ToleranceWindow,
	}
	executor := &scheduler.Executor{
		Campaigns: campaignRepo,
		Posts:     postRepo,
		Machine:   machine,
		Transport: transport,
		Exporter:  exporter,
		Audit:     recorder,
		Attempts:  cfg.PublishAttempts,
		Backoff:   cfg.PublishBackoff,
	}
	controller := &scheduler.Controller{
		Campaigns:        campaignRepo,
		Posts:            postRepo,
		Machine:          machine,
		Policy:           policy,
		Ingestor:         ingestor,
		Executor:         executor,
		Audit:            recorder,
		Logger:           logger,
		CycleInterval:    cfg.CycleInterval,
		MinCycleGap:      cfg.MinCycleGap,
		StartupDelay:     cfg.StartupDelay,
		Lookahead:        cfg.Lookahead,
		OverdueGrace:     cfg.OverdueGrace,
		ReingestInterval: cfg.ReingestInterval,
		RetentionDays:    cfg.RetentionDays,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go controller.Run(ctx)

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		PostRepo:     postRepo,
		LogRepo:      logRepo,
		Ingestor:     ingestor,
	}
	postService := &service.PostService{
		CampaignRepo: campaignRepo,
		PostRepo:     postRepo,
		Machine:      machine,
	}
	router := handler.NewRouter(
		&handler.CampaignHandler{Service: campaignService},
		&handler.PostHandler{Service: postService},
	)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.HTTPAddr).Info("Server running")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server stopped")
	}
}
