package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"reliefchain/config"
	"reliefchain/core"
	"reliefchain/core/genesis"
	"reliefchain/core/state"
	"reliefchain/observability/logging"
	telemetry "reliefchain/observability/otel"
	"reliefchain/rpc"
	"reliefchain/storage"
)

const genesisPathEnv = "RELIEF_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides RELIEF_GENESIS and config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("RELIEF_ENV"))
	logger := logging.Setup("reliefd", env)

	shutdownTelemetry := initTelemetry(logger, env)
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := bootstrapGenesis(db, resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv), logger); err != nil {
		logger.Error("genesis bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	node := core.NewNode(db)
	node.SetEventBacklog(cfg.Limits.EventBufferSize)

	rpcServer := rpc.NewServer(node, rpc.Options{
		AuthTokenEnv:      cfg.RPCAuthTokenEnv,
		MaxBodyBytes:      cfg.Limits.RPCMaxBodyBytes,
		RequestsPerMin:    cfg.Limits.RPCRequestsPerMin,
		ReadHeaderTimeout: time.Duration(cfg.Limits.ReadHeaderTimeoutSecs) * time.Second,
		ShutdownGrace:     time.Duration(cfg.Limits.ShutdownGraceSecs) * time.Second,
		Logger:            logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rpcErrCh := make(chan error, 1)
	go func() {
		rpcErrCh <- rpcServer.Start(ctx, cfg.RPCAddress)
		close(rpcErrCh)
	}()

	if err := waitForRPCStartup(cfg.RPCAddress, rpcErrCh, 5*time.Second); err != nil {
		logger.Error("RPC server failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("relief node initialised and running",
		slog.String("network", cfg.NetworkName),
		slog.String("rpc", cfg.RPCAddress))

	select {
	case <-ctx.Done():
	case err, ok := <-rpcErrCh:
		if ok && err != nil {
			logger.Error("RPC server terminated", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if err, ok := <-rpcErrCh; ok && err != nil {
		logger.Error("RPC shutdown error", slog.Any("error", err))
	}
}

// bootstrapGenesis applies the genesis spec exactly once per data directory.
// A fresh store with no genesis file is an error: role assignments cannot be
// made without an admin, so an unbootstrapped ledger is unusable.
func bootstrapGenesis(db storage.Database, genesisPath string, logger *slog.Logger) error {
	manager := state.NewManager(db)
	applied, err := genesis.Applied(manager)
	if err != nil {
		return err
	}
	if applied {
		if genesisPath != "" {
			logger.Info("genesis already applied, ignoring genesis file", slog.String("path", genesisPath))
		}
		return nil
	}
	if genesisPath == "" {
		return fmt.Errorf("no genesis file provided for a fresh data directory; supply one via --genesis, %s, or config", genesisPathEnv)
	}
	spec, err := genesis.LoadFile(genesisPath)
	if err != nil {
		return err
	}
	if err := genesis.Apply(manager, spec); err != nil {
		return err
	}
	logger.Info("genesis applied",
		slog.String("path", genesisPath),
		slog.Int("admins", len(spec.Admins)),
		slog.Int("minters", len(spec.Minters)))
	return nil
}

type envLookupFunc func(string) (string, bool)

func resolveGenesisPath(cliPath string, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}

func initTelemetry(logger *slog.Logger, env string) func(context.Context) error {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return nil
	}
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "reliefd",
		Environment: env,
		Endpoint:    endpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	return shutdown
}

func waitForRPCStartup(addr string, errCh <-chan error, timeout time.Duration) error {
	dialAddr := dialAddressFor(addr)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if !ok || err == nil {
				return fmt.Errorf("RPC server exited before startup confirmation")
			}
			return err
		default:
		}

		conn, err := net.DialTimeout("tcp", dialAddr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case err, ok := <-errCh:
			if !ok || err == nil {
				return fmt.Errorf("RPC server exited before startup confirmation")
			}
			return err
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for RPC server to start on %s", addr)
		}
	}
}

func dialAddressFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
