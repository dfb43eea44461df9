// ytanalyzer/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytanalyzer/analysis"
	"ytanalyzer/api"
	"ytanalyzer/cache"
	"ytanalyzer/config"
	"ytanalyzer/logger"
	"ytanalyzer/openai"
	"ytanalyzer/task"
	"ytanalyzer/transcript"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "ytanalyzer",
		Short:        "Fact-check YouTube video transcripts with a language model",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newAnalyzeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newAnalyzeCommand() *cobra.Command {
	var apiKey string
	var noCache bool
	cmd := &cobra.Command{
		Use:   "analyze <youtube-url>",
		Short: "Analyze one video and print the sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if apiKey == "" {
				apiKey = cfg.OpenAIAPIKey
			}
			if apiKey == "" {
				return fmt.Errorf("an OpenAI API key is required (--api-key or YTANALYZER_OPENAI_API_KEY)")
			}
			store := cache.New(cfg.CacheDir)
			if noCache {
				store = cache.New("")
			}
			svc := newAnalysisService(cfg, store)

			report, err := svc.Analyze(cmd.Context(), args[0], apiKey, func(pct int) {
				logger.Debugf("progress %d%%", pct)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.Sections == nil {
				// Cached entries only keep the rendered HTML.
				fmt.Fprintln(out, report.HTML)
				return nil
			}
			fmt.Fprintln(out, analysis.RenderText(report.Title, report.Sections))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key (defaults to YTANALYZER_OPENAI_API_KEY)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore and do not write the on-disk cache")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func newAnalysisService(cfg *config.Config, store *cache.Store) *analysis.Service {
	source := transcript.NewYouTube(cfg.YouTubeTimeout, cfg.TranscriptLanguages,
		transcript.WithMaxBodySize(cfg.MaxResponseSize))
	llm := openai.NewClient(openai.Config{
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Timeout:     cfg.OpenAITimeout,
	})
	logger.Infof("Using model %s at %s", llm.Model(), cfg.OpenAIBaseURL)
	return analysis.NewService(source, llm, store, analysis.Options{
		ChunkMaxLength: cfg.ChunkMaxLength,
		Concurrency:    cfg.AnalysisConcurrency,
	})
}

func runServe(parent context.Context) error {
	// 1. Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 2. Initialize collaborators
	store := cache.New(cfg.CacheDir)
	svc := newAnalysisService(cfg, store)

	// 3. Task registry and scheduler. Executions get a background context; tasks
	// have no cancellation signal.
	registry := task.NewRegistry()
	scheduler := task.NewScheduler(context.Background(), registry, cfg.MaxConcurrency, store)

	stopPruner, err := cache.StartPruner(store, cfg.CachePruneSchedule, cfg.CacheLifetime)
	if err != nil {
		return err
	}
	defer stopPruner()

	// 4. Set up router and server
	router := api.SetupRouter(registry, scheduler, svc, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 5. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	logger.Infof("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Let running analyses finish and record their outcome.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if err := scheduler.WaitContext(drainCtx); err != nil {
		logger.Warnf("Abandoning unfinished tasks: %v", err)
	}

	logger.Infof("Server exiting")
	return nil
}
