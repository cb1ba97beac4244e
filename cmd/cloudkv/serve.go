package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/KilimcininKorOglu/cloudkv/internal/config"
	"github.com/KilimcininKorOglu/cloudkv/internal/handler"
	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
	"github.com/KilimcininKorOglu/cloudkv/internal/network"
	"github.com/KilimcininKorOglu/cloudkv/internal/raft"
	"github.com/KilimcininKorOglu/cloudkv/internal/routing"
	"github.com/KilimcininKorOglu/cloudkv/internal/storage"
	"github.com/KilimcininKorOglu/cloudkv/internal/storage/boltdb"
	"github.com/KilimcininKorOglu/cloudkv/internal/storage/memdb"
)

// NodeServer wires the components of one cloudkv node.
type NodeServer struct {
	config    *config.Config
	logger    logging.Logger
	store     *storage.Store
	transport *network.TCPTransport
	node      *raft.Node
	server    *network.Server
	watcher   *config.Watcher
}

// NewNodeServer builds a node from cfg. The store is opened; nothing
// listens until Start.
func NewNodeServer(cfg *config.Config, logger logging.Logger) (*NodeServer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithFields("node", cfg.Node.Address)

	var opener storage.BackendOpener
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		opener = memdb.Opener()
	default:
		opener = boltdb.Opener(filepath.Join(cfg.Storage.DataDir, dbFileName(cfg.Node.Address)))
	}

	opts := storage.DefaultOptions().
		WithPartitions(cfg.Storage.Partitions).
		WithLogger(logger.Named("storage"))
	store, err := storage.NewStore(opener, opts)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	table := routing.NewStaticTable(cfg.Node.Address, cfg.Node.Peers, cfg.Storage.Partitions)
	transport := network.NewTCPTransport(cfg.Raft.DialTimeout)

	node, err := raft.NewNode(raft.Config{
		Address:            cfg.Node.Address,
		ElectionTimeoutMin: cfg.Raft.ElectionTimeoutMin,
		ElectionTimeoutMax: cfg.Raft.ElectionTimeoutMax,
		HeartbeatInterval:  cfg.Raft.HeartbeatInterval,
		ResponseTimeout:    cfg.Raft.DialTimeout,
	}, table, transport, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create raft node: %w", err)
	}
	node.SetLogger(logger.Named("raft"))

	h := handler.New(node, logger.Named("handler"))

	return &NodeServer{
		config:    cfg,
		logger:    logger,
		store:     store,
		transport: transport,
		node:      node,
		server:    network.NewServer(cfg.Node.Address, h, logger.Named("network")),
	}, nil
}

// Start listens on the node address and starts the consensus worker.
func (s *NodeServer) Start() error {
	if err := s.server.Listen(); err != nil {
		return err
	}
	s.node.Start()
	s.logger.Info("node started",
		"peers", strings.Join(s.config.Node.Peers, ","),
		"backend", s.config.Storage.Backend,
		"partitions", s.config.Storage.Partitions,
	)
	return nil
}

// Stop shuts the node down. Inbound connections are closed first so no
// handler touches the store after it is closed.
func (s *NodeServer) Stop() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	err := s.server.Close()
	s.node.Stop()
	s.transport.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	s.logger.Info("node stopped")
	return err
}

// Addr returns the listening address.
func (s *NodeServer) Addr() string {
	return s.server.Addr()
}

// watchConfig applies logging changes of path while the node runs.
func (s *NodeServer) watchConfig(path string) error {
	w, err := config.NewWatcher(&config.WatcherConfig{
		FilePath: path,
		OnChange: s.handleConfigReload,
		Logger:   s.logger.Named("config"),
	})
	if err != nil {
		return err
	}
	s.watcher = w
	w.Start()
	return nil
}

// handleConfigReload applies a changed configuration. Only the log level
// takes effect at runtime.
func (s *NodeServer) handleConfigReload(oldCfg, newCfg *config.Config) {
	if oldCfg.Logging.Level != newCfg.Logging.Level {
		s.logger.SetLevel(logging.ParseLevel(newCfg.Logging.Level))
		s.logger.Info("log level changed", "from", oldCfg.Logging.Level, "to", newCfg.Logging.Level)
	}

	if oldCfg.Logging.Format != newCfg.Logging.Format || oldCfg.Logging.Output != newCfg.Logging.Output {
		s.logger.Warn("logging format and output changes require a restart")
	}
	if oldCfg.Node.Address != newCfg.Node.Address ||
		!stringSliceEqual(oldCfg.Node.Peers, newCfg.Node.Peers) ||
		oldCfg.Storage != newCfg.Storage ||
		oldCfg.Raft != newCfg.Raft {
		s.logger.Warn("node, storage and raft changes require a restart")
	}
}

// serveCmd handles the serve command.
func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	address := fs.String("address", "", "Node address (overrides config)")
	peers := fs.String("peers", "", "Comma-separated peer addresses (overrides config)")
	dataDir := fs.String("data-dir", "", "Data directory path (overrides config)")
	backend := fs.String("backend", "", "Storage backend: bolt, memory (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printServeUsage(os.Stdout)
		return 0
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Command-line overrides take priority over the file
	if *address != "" {
		cfg.Node.Address = *address
	}
	if *peers != "" {
		cfg.Node.Peers = splitList(*peers)
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// Environment overrides take priority over everything
	applyEnvOverrides(cfg)

	if !reportValidation(cfg) {
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	srv, err := NewNodeServer(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create node: %v\n", err)
		return 1
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start node: %v\n", err)
		srv.Stop()
		return 1
	}

	if *configFile != "" {
		if err := srv.watchConfig(*configFile); err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		return 1
	}
	return 0
}

// dbFileName derives a per-node database file name so several nodes can
// share a data directory.
func dbFileName(addr string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "[", "", "]", "")
	return "cloudkv-" + r.Replace(addr) + ".db"
}

// stringSliceEqual reports whether a and b hold the same items in order.
func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
