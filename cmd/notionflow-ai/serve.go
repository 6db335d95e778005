package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/notionflow-ai/internal/callback"
	"github.com/thebtf/notionflow-ai/internal/classifier"
	"github.com/thebtf/notionflow-ai/internal/clustering"
	"github.com/thebtf/notionflow-ai/internal/config"
	"github.com/thebtf/notionflow-ai/internal/embedding"
	"github.com/thebtf/notionflow-ai/internal/extract"
	"github.com/thebtf/notionflow-ai/internal/jobs"
	"github.com/thebtf/notionflow-ai/internal/metrics"
	"github.com/thebtf/notionflow-ai/internal/report"
	"github.com/thebtf/notionflow-ai/internal/summarizer"
	"github.com/thebtf/notionflow-ai/internal/watcher"
	"github.com/thebtf/notionflow-ai/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worker HTTP service and scheduled jobs",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from NOTIONFLOW_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort > 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := metrics.Global()
	enc := newEncoder(cfg)
	summ := newSummarizer(cfg)

	cls, err := newClassifier(ctx, cfg, enc)
	if err != nil {
		return err
	}

	clusters := clustering.NewService(clustering.DefaultParams(), rec)
	callbacks := callback.New(cfg.CallbackTimeout(), rec)
	runner := jobs.NewRunner(jobs.Options{
		BaseURL:   cfg.WebCallbackURL,
		WebApp:    callbacks,
		Clusterer: clusters,
		Reports:   report.NewGenerator(summ),
		Metrics:   rec,
		Location:  cfg.Location(),
	})

	svc := worker.NewService(Version, cfg, worker.Deps{
		Encoder:    enc,
		Summarizer: summ,
		Clusters:   clusters,
		Classifier: cls,
		Entities:   extract.NewEntityExtractor(nil),
		Callbacks:  callbacks,
		Jobs:       runner,
	})

	if cfg.SchedulerEnabled {
		interval := time.Duration(cfg.ReclusterIntervalHours) * time.Hour
		sched, err := jobs.NewScheduler(runner, interval, cfg.Location())
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	// Settings are read once at startup, so a change ends the process and
	// the supervisor restarts it with the new values.
	fw, err := watcher.New(func(path string) {
		log.Warn().Str("path", path).Msg("Config file changed, shutting down for restart")
		stop()
	}, config.SettingsPath(), cfg.TaxonomyPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
	} else if err := fw.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
	} else {
		defer func() { _ = fw.Stop() }()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Start()
	}()
	svc.MarkReady()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("Shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}

// newEncoder returns nil when no embedding endpoint is configured. The
// worker then runs without vectors.
func newEncoder(cfg *config.Config) embedding.Encoder {
	client, err := embedding.NewClient(embedding.Config{
		BaseURL: cfg.EmbeddingURL,
		Model:   cfg.EmbeddingModel,
		APIKey:  cfg.EmbeddingAPIKey,
	})
	if err != nil {
		if errors.Is(err, embedding.ErrNotConfigured) {
			log.Info().Msg("Embedding endpoint not configured, running without embeddings")
		} else {
			log.Warn().Err(err).Msg("Embedding client unavailable, running without embeddings")
		}
		return nil
	}
	log.Info().Str("model", client.ModelName()).Msg("Embedding client ready")
	return client
}

// newSummarizer prefers the configured model and falls back to lead
// sentence extraction.
func newSummarizer(cfg *config.Config) summarizer.Summarizer {
	if cfg.SummarizerURL == "" {
		log.Info().Msg("Summarizer endpoint not configured, using lead extraction")
		return summarizer.Lead{}
	}
	client := summarizer.NewClient(summarizer.Config{
		BaseURL: cfg.SummarizerURL,
		Model:   cfg.SummarizerModel,
		APIKey:  cfg.SummarizerAPIKey,
	})
	return summarizer.WithFallback(client, summarizer.Lead{})
}

// newClassifier loads the taxonomy and builds prototype vectors when an
// encoder is available. Prototype failures leave a keyword-only classifier.
func newClassifier(ctx context.Context, cfg *config.Config, enc embedding.Encoder) (*classifier.Classifier, error) {
	taxonomy := classifier.DefaultTaxonomy()
	if cfg.TaxonomyPath != "" {
		loaded, err := classifier.LoadTaxonomy(cfg.TaxonomyPath)
		if err != nil {
			return nil, err
		}
		taxonomy = loaded
	}

	cls := classifier.New(taxonomy)
	if enc == nil {
		return cls, nil
	}
	if err := cls.BuildPrototypes(ctx, enc); err != nil {
		log.Warn().Err(err).Msg("Failed to build prototype vectors, classifying by keywords only")
	}
	return cls, nil
}
