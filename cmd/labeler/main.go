package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/log-labeler/internal/adapter/metrics"
	"github.com/V4T54L/log-labeler/internal/adapter/pii"
	"github.com/V4T54L/log-labeler/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/log-labeler/internal/adapter/repository/redis"
	"github.com/V4T54L/log-labeler/internal/adapter/repository/wal"
	"github.com/V4T54L/log-labeler/internal/adapter/source"
	"github.com/V4T54L/log-labeler/internal/adapter/table"
	"github.com/V4T54L/log-labeler/internal/classifier"
	"github.com/V4T54L/log-labeler/internal/domain"
	"github.com/V4T54L/log-labeler/internal/pkg/config"
	"github.com/V4T54L/log-labeler/internal/pkg/logger"
	"github.com/V4T54L/log-labeler/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	projection := flag.Bool("projection", false, "write only url, referrer and label columns")
	combined := flag.String("combined", "", "also write the records of every input to this CSV file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] access.log [more.log.gz ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.NewLabelerMetrics(reg)

	cls, err := classifier.FromFile(cfg.RulesPath)
	if err != nil {
		log.Error("failed to load classification rules", "error", err)
		os.Exit(1)
	}

	sinks, closeSinks, err := buildSinks(ctx, cfg, log, m)
	if err != nil {
		log.Error("failed to initialize sinks", "error", err)
		os.Exit(1)
	}
	defer closeSinks()

	columns := table.Columns
	if *projection {
		columns = table.ProjectionColumns
	}

	src := source.NewFileSource(cfg.MaxLineSize, log)
	labelUseCase := usecase.NewLabelLogsUseCase(cls, log, m, cfg.Workers)
	persistUseCase := usecase.NewPersistLabelsUseCase(sinks, pii.NewRedactor(cfg.RedactQueryParams, log), log, m, usecase.PersistOptions{
		BatchSize:    cfg.SinkBatchSize,
		RetryCount:   cfg.SinkRetryCount,
		RetryBackoff: cfg.SinkRetryBackoff,
	})

	var all []domain.LabeledRecord
	failed := 0
	for _, path := range flag.Args() {
		if ctx.Err() != nil {
			break
		}

		runID := uuid.NewString()
		records, _, err := labelUseCase.RunSource(ctx, src, path)
		if err != nil {
			failed++
			continue
		}

		out := filepath.Join(cfg.OutputDir, outputName(path))
		if err := writeCSV(out, records, columns); err != nil {
			log.Error("failed to write labeled csv", "path", out, "error", err)
			failed++
			continue
		}
		log.Info("wrote labeled csv", "path", out, "run_id", runID, "records", len(records))

		if err := persistUseCase.Persist(ctx, runID, records); err != nil {
			failed++
		}
		if *combined != "" {
			all = append(all, records...)
		}
	}

	if *combined != "" {
		if err := writeCSV(*combined, all, columns); err != nil {
			log.Error("failed to write combined csv", "path", *combined, "error", err)
			failed++
		}
	}

	if cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, reg); err != nil {
			log.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	if failed > 0 {
		log.Error("labeling finished with failures", "failed", failed)
		os.Exit(1)
	}
	log.Info("labeling finished")
}

// buildSinks connects the sinks enabled in cfg. The returned func releases
// every connection that was opened.
func buildSinks(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.LabelerMetrics) ([]domain.LabeledRecordSink, func(), error) {
	var sinks []domain.LabeledRecordSink
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		if err := db.PingContext(ctx); err != nil {
			return nil, closeAll, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		repo := postgres.NewLabelRepository(db, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, closeAll, err
		}
		log.Info("connected to postgres")
		sinks = append(sinks, repo)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		closers = append(closers, func() { client.Close() })

		walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to initialize WAL repository: %w", err)
		}
		closers = append(closers, func() { walRepo.Close() })

		repo := redisrepo.NewLabelRepository(ctx, client, log, redisrepo.Options{
			Stream:     cfg.RedisStream,
			MaxLen:     cfg.RedisStreamMaxLen,
			PublishRPS: cfg.RedisPublishRPS,
		}, walRepo, m)
		if repo.Available() {
			// Flush records spooled by an earlier run.
			if err := repo.Recover(ctx); err != nil {
				log.Warn("failed to replay WAL, records stay spooled", "error", err)
			}
		} else {
			log.Warn("could not connect to redis, records will be spooled to WAL")
		}
		sinks = append(sinks, repo)
	}

	return sinks, closeAll, nil
}

func writeCSV(path string, records []domain.LabeledRecord, columns []string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return table.WriteCSV(f, records, columns)
}

// outputName derives "<name>_labeled.csv" from an input path, dropping
// compression and log extensions: "logs/acunetix.txt.gz" -> "acunetix_labeled.csv".
func outputName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".zst", ".txt", ".log"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name + "_labeled.csv"
}
