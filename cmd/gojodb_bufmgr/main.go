package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/sushant-115/gojodb-bufferpool/core/storage_engine/common"
	bufferpool "github.com/sushant-115/gojodb-bufferpool/core/write_engine/buffer_pool"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	"github.com/sushant-115/gojodb-bufferpool/pkg/config"
	"github.com/sushant-115/gojodb-bufferpool/pkg/logger"
	"github.com/sushant-115/gojodb-bufferpool/pkg/telemetry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	storeKind   = flag.String("store", "", "Backing store: disk or memory")
	dbPath      = flag.String("path", "", "Database file for the disk store")
	poolSize    = flag.Int("pool-size", 0, "Number of frames in the pool")
	pageSize    = flag.Int("page-size", 0, "Page size in bytes")
	replacer    = flag.String("replacer", "", "Replacement policy: lru or clock")
	directIO    = flag.Bool("direct-io", false, "Open the database file with O_DIRECT")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	metrics     = flag.Bool("metrics", false, "Serve Prometheus metrics")
	metricsPort = flag.Int("metrics-port", 0, "Port for the /metrics endpoint")
	snapshotDir = flag.String("snapshot-dir", "", "Directory for snapshots")
)

// storeHandle is a page store plus whatever is needed to shut it down.
type storeHandle struct {
	store  flushmanager.PageStore
	close  func() error
	dbPath string
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	zlogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("CRITICAL: Can't initialize zap logger: %v", err)
	}
	defer func() { _ = zlogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlogger, flag.Args()); err != nil {
		zlogger.Error("Buffer manager exited with errors", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies flags that were set
// explicitly on the command line.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
		switch f.Name {
		case "store":
			cfg.Store.Kind = strings.ToLower(*storeKind)
		case "path":
			cfg.Store.Path = *dbPath
		case "pool-size":
			cfg.BufferPool.PoolSize = *poolSize
		case "page-size":
			cfg.Store.PageSize = *pageSize
		case "replacer":
			cfg.BufferPool.Replacer = *replacer
		case "direct-io":
			cfg.Store.DirectIO = *directIO
		case "log-level":
			cfg.Logger.Level = *logLevel
		case "metrics":
			cfg.Telemetry.Enabled = *metrics
		case "metrics-port":
			cfg.Telemetry.PrometheusPort = *metricsPort
		case "snapshot-dir":
			cfg.Snapshot.Dir = *snapshotDir
		}
	})
	// A bare -path means a disk store.
	if set["path"] && !set["store"] {
		cfg.Store.Kind = config.StoreKindDisk
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, zlogger *zap.Logger, args []string) (err error) {
	tel, shutdownTelemetry, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		err = multierr.Append(err, shutdownTelemetry(context.Background()))
	}()
	if tel.MetricsAddr != "" {
		zlogger.Info("Serving metrics", zap.String("addr", tel.MetricsAddr))
	}

	sh, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, sh.close())
	}()

	bpm, err := newPool(cfg, flushmanager.NewTracedStore(sh.store, tel.Tracer), tel, zlogger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, bpm.Close())
	}()

	zlogger.Info("Buffer pool ready",
		zap.String("pool_id", bpm.GetID()),
		zap.Int("pool_size", bpm.GetPoolSize()),
		zap.Int("page_size", bpm.GetPageSize()),
		zap.String("replacer", cfg.BufferPool.Replacer),
		zap.String("store", cfg.Store.Kind))

	snap := snapshotSettings{}
	if sh.dbPath != "" {
		snap = snapshotSettings{
			dbPath: sh.dbPath,
			dir:    cfg.Snapshot.Dir,
			opts: common.CopyOptions{
				RateBytesPerSec: cfg.Snapshot.RateBytesPerSec,
				Verify:          cfg.Snapshot.Verify,
				LowerPriority:   true,
			},
		}
	}

	if len(args) > 0 {
		s := newShell(bpm, os.Stdout, zlogger, snap)
		defer s.releaseAll()
		if runErr := s.run(ctx, args); runErr != nil && !errors.Is(runErr, errExit) {
			return runErr
		}
		return nil
	}
	return interactive(ctx, bpm, zlogger, snap)
}

func interactive(ctx context.Context, bpm *bufferpool.BufferPoolManager, zlogger *zap.Logger, snap snapshotSettings) error {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandNames))
	for _, name := range commandNames {
		items = append(items, readline.PcItem(name))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "bufmgr> ",
		HistoryFile:       filepath.Join(os.TempDir(), ".gojodb_bufmgr_history"),
		AutoComplete:      readline.NewPrefixCompleter(items...),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer rl.Close()

	s := newShell(bpm, rl.Stdout(), zlogger, snap)
	defer s.releaseAll()
	fmt.Fprintln(rl.Stdout(), "GojoDB buffer manager (interactive mode). Type 'help' for commands, 'exit' or 'quit' to leave.")

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error reading input: %w", err)
		}

		cmdArgs := strings.Fields(line)
		if len(cmdArgs) == 0 {
			continue
		}
		if s.processCommand(ctx, cmdArgs) {
			return nil
		}
	}
}

// openStore builds the configured page store. A missing database file is
// created; an existing one is reopened.
func openStore(cfg config.StoreConfig) (*storeHandle, error) {
	switch strings.ToLower(cfg.Kind) {
	case config.StoreKindMemory:
		ms := flushmanager.NewMemStore(cfg.PageSize)
		return &storeHandle{store: ms, close: ms.Close}, nil
	case config.StoreKindDisk:
		dm, err := flushmanager.NewDiskManager(cfg.Path, cfg.PageSize, cfg.DirectIO)
		if err != nil {
			return nil, err
		}
		if _, err := dm.OpenOrCreateFile(false); err != nil {
			if !errors.Is(err, flushmanager.ErrDBFileNotFound) {
				return nil, err
			}
			if _, err := dm.OpenOrCreateFile(true); err != nil {
				return nil, err
			}
		}
		return &storeHandle{store: dm, close: dm.Close, dbPath: dm.GetFilePath()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown store kind %q", flushmanager.ErrInvalidArgument, cfg.Kind)
	}
}

func newPool(cfg *config.Config, store flushmanager.PageStore, tel *telemetry.Telemetry, zlogger *zap.Logger) (*bufferpool.BufferPoolManager, error) {
	return bufferpool.NewBufferPoolManager(store, bufferpool.Options{
		PoolSize:        cfg.BufferPool.PoolSize,
		PageSize:        cfg.Store.PageSize,
		Replacer:        cfg.BufferPool.Replacer,
		DetectDeadlocks: cfg.BufferPool.DetectDeadlocks,
		Logger:          zlogger,
		Meter:           tel.Meter,
	})
}
