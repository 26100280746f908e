package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/foundation/blockchain/consensus"
	"github.com/ardanlabs/ledger/foundation/blockchain/contract"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// viewerPrefix marks the events forwarded to subscribers.
const viewerPrefix = "viewer:"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
		}
		State struct {
			Storage      string        `conf:"default:disk,help:memory|disk|bolt"`
			DBPath       string        `conf:"default:zblock/blocks"`
			GenesisPath  string        `conf:"default:zblock/genesis.json"`
			MineInterval time.Duration `conf:"default:10s"`
		}
		Consensus struct {
			Kind       string   `conf:"help:overrides the genesis consensus kind"`
			Difficulty uint     `conf:"default:0"`
			Validators []string
		}
		Contract struct {
			RPCURL string `conf:"help:json-rpc node used to publish contracts"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Genesis Support

	gen, err := loadGenesis(cfg.State.GenesisPath)
	if err != nil {
		return err
	}

	if cfg.Consensus.Kind != "" {
		gen.Consensus = consensus.Config{
			Kind:       cfg.Consensus.Kind,
			Difficulty: cfg.Consensus.Difficulty,
			Validators: cfg.Consensus.Validators,
		}
	}

	log.Infow("startup", "status", "genesis", "chain_id", gen.ChainID, "consensus", gen.Consensus.Kind)

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Viewer messages are also sent to anyone subscribed
	// through the events package.
	traceID := uuid.NewString()
	evts := events.New()
	logEv := logger.EventHandler(log, traceID)
	ev := func(v string, args ...any) {
		logEv(v, args...)
		if strings.HasPrefix(v, viewerPrefix) {
			evts.Send(fmt.Sprintf(v, args...))
		}
	}

	hook, err := consensus.New(gen.Consensus, ev)
	if err != nil {
		return fmt.Errorf("constructing consensus hook: %w", err)
	}

	strg, err := openStorage(cfg.State.Storage, cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	var deployer contract.Deployer
	if cfg.Contract.RPCURL != "" {
		rpcEngine, err := contract.DialRPC(ctx, cfg.Contract.RPCURL)
		if err != nil {
			return err
		}
		defer rpcEngine.Close()
		deployer = rpcEngine
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// The state value represents the ledger and manages the chain, the
	// pending pool and the settlement state.
	st, err := state.New(state.Config{
		Genesis:    gen,
		Storage:    strg,
		Hook:       hook,
		Deployer:   deployer,
		Registerer: reg,
		EvHandler:  ev,
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer st.Shutdown()

	// The worker mines pending transactions in the background. The worker
	// will register itself with the state.
	worker.Run(st, cfg.State.MineInterval, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	debug := http.Server{
		Addr:         cfg.Web.DebugHost,
		Handler:      handlers.DebugMux(build, log, st, reg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// =========================================================================
	// Service Start/Stop Support

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := debug.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("debug server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		id, ch := evts.Acquire()
		log.Infow("startup", "status", "block subscriber started", "id", id)

		for msg := range ch {
			log.Infow("blocks", "id", id, "msg", strings.TrimSpace(strings.TrimPrefix(msg, viewerPrefix)))
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		log.Infow("shutdown", "status", "shutdown started")
		defer log.Infow("shutdown", "status", "shutdown complete")

		// Release any subscribers that are currently active.
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := debug.Shutdown(sctx); err != nil {
			debug.Close()
			return fmt.Errorf("could not stop debug service gracefully: %w", err)
		}

		return nil
	})

	return g.Wait()
}

// loadGenesis reads the genesis file. A missing file falls back to the
// default genesis.
func loadGenesis(path string) (genesis.Genesis, error) {
	gen, err := genesis.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return genesis.Default(), nil
		}
		return genesis.Genesis{}, fmt.Errorf("loading genesis: %w", err)
	}

	return gen, nil
}

// openStorage constructs the storage selected by kind.
func openStorage(kind string, path string) (database.Storage, error) {
	switch kind {
	case "memory":
		return memory.New()
	case "disk":
		return disk.New(path)
	case "bolt":
		return bolt.New(path + ".db")
	}

	return nil, fmt.Errorf("storage %q does not exist", kind)
}
