package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"newspulse/analytics/internal/config"
	"newspulse/analytics/internal/database"
	"newspulse/analytics/internal/extract"
	"newspulse/analytics/internal/server"
	"newspulse/analytics/internal/storage"
	"newspulse/analytics/internal/textproc"
	"newspulse/analytics/internal/tfidf"
	"newspulse/analytics/internal/wordcloud"
	"newspulse/analytics/internal/workpool"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func main() {
	cfg := config.DefaultConfig()

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	startCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("ANALYTICS_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: ANALYTICS_DB_PATH)")
	startCmd.StringVar(&cfg.StopwordsPath, "stopwords", config.GetEnvString("ANALYTICS_STOPWORDS_PATH", config.DefaultStopwordsPath),
		"Path to a newline-delimited stopwords file, empty for none (env: ANALYTICS_STOPWORDS_PATH)")

	var startLogLevelStr string
	startCmd.StringVar(&startLogLevelStr, "log-level", config.GetEnvString("ANALYTICS_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: ANALYTICS_LOG_LEVEL)")

	var intervalMinutes int
	startCmd.IntVar(&intervalMinutes, "interval", config.GetEnvInt("ANALYTICS_INTERVAL", config.DefaultInterval),
		"Interval in minutes between extraction runs, 0 for one-shot mode (env: ANALYTICS_INTERVAL)")

	startCmd.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt("ANALYTICS_WORKER_COUNT", config.DefaultWorkerCount),
		"Number of worker goroutines for extraction (env: ANALYTICS_WORKER_COUNT)")
	startCmd.IntVar(&cfg.FetchLimit, "limit", config.GetEnvInt("ANALYTICS_FETCH_LIMIT", config.DefaultFetchLimit),
		"Maximum number of unextracted documents per run (env: ANALYTICS_FETCH_LIMIT)")
	startCmd.IntVar(&cfg.MaxFeatures, "max-features", config.GetEnvInt("ANALYTICS_MAX_FEATURES", config.DefaultMaxFeatures),
		"Vocabulary size ceiling for TF-IDF fitting (env: ANALYTICS_MAX_FEATURES)")
	startCmd.IntVar(&cfg.KeywordsPerDoc, "keywords", config.GetEnvInt("ANALYTICS_KEYWORDS_PER_DOC", config.DefaultKeywordsPerDoc),
		"Number of keywords persisted per document (env: ANALYTICS_KEYWORDS_PER_DOC)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("ANALYTICS_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: ANALYTICS_DB_PATH)")
	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("ANALYTICS_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: ANALYTICS_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("ANALYTICS_PORT", config.DefaultServerPort),
		"Port to listen on (env: ANALYTICS_PORT)")
	serverCmd.StringVar(&cfg.WordcloudRoot, "wordcloud-dir", config.GetEnvString("ANALYTICS_WORDCLOUD_DIR", config.DefaultWordcloudRoot),
		"Directory for rendered word cloud images (env: ANALYTICS_WORDCLOUD_DIR)")
	serverCmd.StringVar(&cfg.FontPath, "font", config.GetEnvString("ANALYTICS_FONT_PATH", config.DefaultFontPath),
		"TTF font used for word cloud rendering (env: ANALYTICS_FONT_PATH)")
	serverCmd.StringVar(&cfg.StopwordsPath, "stopwords", config.GetEnvString("ANALYTICS_STOPWORDS_PATH", config.DefaultStopwordsPath),
		"Path to a newline-delimited stopwords file, empty for none (env: ANALYTICS_STOPWORDS_PATH)")
	serverCmd.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt("ANALYTICS_WORKER_COUNT", config.DefaultWorkerCount),
		"Number of worker goroutines for analysis requests (env: ANALYTICS_WORKER_COUNT)")
	serverCmd.IntVar(&cfg.MaxFeatures, "max-features", config.GetEnvInt("ANALYTICS_MAX_FEATURES", config.DefaultMaxFeatures),
		"Vocabulary size ceiling for TF-IDF fitting (env: ANALYTICS_MAX_FEATURES)")
	serverCmd.IntVar(&cfg.WordcloudMaxWords, "max-words", config.GetEnvInt("ANALYTICS_WORDCLOUD_MAX_WORDS", config.DefaultWordcloudMaxWords),
		"Maximum number of words rendered per word cloud (env: ANALYTICS_WORDCLOUD_MAX_WORDS)")

	var serverLogLevelStr string
	serverCmd.StringVar(&serverLogLevelStr, "log-level", config.GetEnvString("ANALYTICS_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: ANALYTICS_LOG_LEVEL)")

	if len(os.Args) < 2 {
		fmt.Println("Usage: analytics [command] [options]")
		fmt.Println("Commands: start, server")
		fmt.Println("\nFor command-specific options, use: analytics [command] -h")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		startCmd.Parse(os.Args[2:])

		// Handle log level parsing separately since it needs conversion
		if level, err := zerolog.ParseLevel(startLogLevelStr); err == nil {
			cfg.LogLevel = level
		}

		cfg.Interval = time.Duration(intervalMinutes) * time.Minute

		zerolog.SetGlobalLevel(cfg.LogLevel)

		if err := runStart(cfg); err != nil {
			log.Error().Err(err).Msg("Extraction failed")
			os.Exit(1)
		}

	case "server":
		serverCmd.Parse(os.Args[2:])

		// Handle log level parsing separately
		if level, err := zerolog.ParseLevel(serverLogLevelStr); err == nil {
			cfg.LogLevel = level
		}

		zerolog.SetGlobalLevel(cfg.LogLevel)

		if err := runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		fmt.Println("Usage: analytics [command] [options]")
		fmt.Println("Commands: start, server")
		fmt.Println("\nFor command-specific options, use: analytics [command] -h")
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println("Available commands: start, server")
		fmt.Println("\nFor command-specific options, use: analytics [command] -h")
		os.Exit(1)
	}
}

// loadStopwords reads the configured stopwords file, returning an empty
// set when no path is configured.
func loadStopwords(cfg *config.Config) (textproc.Stopwords, error) {
	if cfg.StopwordsPath == "" {
		return textproc.NewStopwords(), nil
	}
	return textproc.LoadStopwords(cfg.StopwordsPath)
}

// runStart executes the keyword extraction either once or periodically
// based on configuration.
func runStart(cfg *config.Config) error {
	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Int64("interval_minutes", int64(cfg.Interval.Minutes())).Msg("Running in periodic mode")
	}

	dbCfg := database.NewConfig(cfg.DBPath)
	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	stop, err := loadStopwords(cfg)
	if err != nil {
		return fmt.Errorf("failed to load stopwords: %w", err)
	}

	pool := workpool.New(cfg.WorkerCount, cfg.WorkerCount*4)
	defer pool.Close()

	runner := extract.NewRunner(
		storage.NewRepository(db),
		tfidf.New(textproc.NewTokenizer(stop), tfidf.Config{MaxFeatures: cfg.MaxFeatures}),
		pool,
		extract.Config{FetchLimit: cfg.FetchLimit, KeywordsPerDoc: cfg.KeywordsPerDoc},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel() // Cancel the context to stop processing
	}()

	if err := runExtractionCycle(ctx, runner); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Extraction cycle canceled by shutdown signal")
			return nil
		}
		return err
	}

	if cfg.Interval == 0 {
		log.Info().Msg("One-shot extraction completed, exiting")
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.Interval).
		Time("next_run", time.Now().Add(cfg.Interval)).
		Msg("Waiting for next extraction cycle")

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled extraction cycle")

			if err := runExtractionCycle(ctx, runner); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Extraction cycle canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Extraction cycle failed")
				// Continue to the next cycle rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(cfg.Interval)).
				Msg("Waiting for next extraction cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic extraction")
			return nil
		}
	}
}

// runExtractionCycle executes a single keyword extraction cycle.
func runExtractionCycle(ctx context.Context, runner *extract.Runner) error {
	cycleCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	log.Info().Msg("Starting extraction cycle")

	startTime := time.Now()
	err := runner.Run(cycleCtx)
	endTime := time.Now()

	log.Info().
		Dur("duration", endTime.Sub(startTime)).
		Msg("Extraction cycle finished")

	if err != nil {
		if ctxErr := cycleCtx.Err(); ctxErr != nil && (errors.Is(ctxErr, err) || err.Error() == ctxErr.Error()) {
			return ctx.Err() // Propagate cancellation
		}
		return fmt.Errorf("extraction error: %w", err)
	}

	processed, keywords, skipped := runner.Stats()
	log.Info().
		Int64("processed", processed).
		Int64("keywords", keywords).
		Int64("skipped", skipped).
		Msg("Extraction stats")

	return nil
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	log.Debug().Msg("Starting server with debug logging enabled")

	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = true

	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	stop, err := loadStopwords(cfg)
	if err != nil {
		return fmt.Errorf("failed to load stopwords: %w", err)
	}
	tok := textproc.NewTokenizer(stop)

	pool := workpool.New(cfg.WorkerCount, cfg.WorkerCount*4)
	defer pool.Close()

	deps := server.Deps{
		DB:            db,
		Extractor:     tfidf.New(tok, tfidf.Config{MaxFeatures: cfg.MaxFeatures}),
		Generator:     wordcloud.NewGenerator(tok, wordcloud.Config{FontPath: cfg.FontPath, MaxWords: cfg.WordcloudMaxWords}),
		Pool:          pool,
		WordcloudRoot: cfg.WordcloudRoot,
	}

	return server.RunServer(deps, cfg.ListenAddr(), log.Logger)
}
