// All-Press print orchestration engine
// Queues print jobs, synthesizes plotter-ready documents and tracks
// device reachability over an IPP spooler.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/kardianos/service"

	"github.com/elissoncardoso1/All-Press/config"
	"github.com/elissoncardoso1/All-Press/directory"
	"github.com/elissoncardoso1/All-Press/logger"
	"github.com/elissoncardoso1/All-Press/queue"
	"github.com/elissoncardoso1/All-Press/spool"
	"github.com/elissoncardoso1/All-Press/storage"
	"github.com/elissoncardoso1/All-Press/ws"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	generateConfig := flag.Bool("generate-config", false, "Generate default config file and exit")
	serviceCmd := flag.String("service", "", "Service control: install, uninstall, start, stop, restart, status, run")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("All-Press %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	}

	if *generateConfig {
		path := *configPath
		if path == "" {
			path = "allpress.toml"
		}
		if err := WriteDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at %s\n", path)
		return
	}

	if *serviceCmd != "" {
		handleServiceCommand(*serviceCmd, *configPath)
		return
	}

	if !service.Interactive() {
		runAsService(*configPath)
		return
	}

	runInteractive(context.Background(), *configPath)
}

// handleServiceCommand processes service install/uninstall/start/stop commands
func handleServiceCommand(cmd, configPath string) {
	svcConfig := getServiceConfig()
	prg := &program{configPath: configPath}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "install":
		if err := setupServiceDirectories(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to setup service directories: %v\n", err)
			os.Exit(1)
		}
		if err := s.Install(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to install service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All-Press service installed, use '--service start' to start it")

	case "uninstall":
		if err := s.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to uninstall service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All-Press service uninstalled")

	case "start":
		if err := s.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All-Press service started")

	case "stop":
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stop service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All-Press service stopped")

	case "restart":
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stop service: %v\n", err)
			os.Exit(1)
		}
		time.Sleep(time.Second)
		if err := s.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All-Press service restarted")

	case "status":
		status, statusErr := s.Status()
		switch status {
		case service.StatusRunning:
			fmt.Println("Service state: RUNNING")
		case service.StatusStopped:
			fmt.Println("Service state: STOPPED")
		default:
			fmt.Println("Service state: NOT INSTALLED")
		}
		if statusErr != nil {
			fmt.Printf("Status error: %v\n", statusErr)
		}

	case "run":
		if err := s.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Service run failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown service command: %s\n", cmd)
		fmt.Println("Valid commands: install, uninstall, start, stop, restart, status, run")
		os.Exit(1)
	}
}

// runAsService starts the engine under service manager control
func runAsService(configPath string) {
	svcConfig := getServiceConfig()
	prg := &program{configPath: configPath}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		os.Exit(1)
	}
	if err := s.Run(); err != nil {
		os.Exit(1)
	}
}

// runInteractive starts the engine in foreground mode (normal operation)
func runInteractive(ctx context.Context, configPath string) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	isService := !service.Interactive()

	logDir, err := config.GetLogDirectory(isService)
	if err != nil {
		logDir = ""
	}
	appLogger := logger.New(logger.INFO, logDir, 1000)
	appLogger.SetRotationPolicy(logger.RotationPolicy{
		Enabled:    true,
		MaxSizeMB:  10,
		MaxAgeDays: 7,
		MaxFiles:   5,
	})
	appLogger.SetLevel(logger.LevelFromString(strings.ToUpper(cfg.Logging.Level)))
	defer appLogger.Close()
	logger.Global = appLogger

	appLogger.Info("All-Press engine starting",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit)

	// Database path from config, falling back to the platform data
	// directory. An unwritable path degrades to in-memory storage rather
	// than aborting startup.
	dbPath := cfg.Database.Path
	if dbPath == "" {
		if dataDir, dirErr := config.GetDataDirectory(isService); dirErr == nil {
			dbPath = filepath.Join(dataDir, "allpress.db")
		} else {
			appLogger.Warn("Could not get data directory, using in-memory storage", "error", dirErr)
			dbPath = ":memory:"
		}
	}

	storage.SetLogger(appLogger)
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		appLogger.Error("Failed to open job database, falling back to in-memory", "path", dbPath, "error", err)
		store, err = storage.NewSQLiteStore(":memory:")
		if err != nil {
			appLogger.Error("Failed to open in-memory database", "error", err)
			os.Exit(1)
		}
	}
	defer store.Close()
	appLogger.Info("Job database ready", "path", dbPath)

	gateway := spool.NewIPPGateway(cfg.Spooler.Endpoint,
		time.Duration(cfg.Spooler.RequestTimeoutMs)*time.Millisecond, appLogger)

	dir := directory.New(gateway,
		time.Duration(cfg.Network.DialTimeoutMs)*time.Millisecond, appLogger)
	dir.SetSNMPCommunity(cfg.SNMP.Community)

	q := queue.New(gateway, cfg.Queue.MaxWorkers, appLogger)
	q.SetDirectory(dir)
	q.SetStore(store)
	if cfg.Queue.MaxDepth > 0 {
		q.SetMaxDepth(cfg.Queue.MaxDepth)
	}

	hub := ws.NewHub()
	defer hub.Stop()

	wireCallbacks(q, dir, hub, store, appLogger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLogger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-runCtx.Done():
		}
	}()

	q.Start(runCtx)
	defer q.Stop()

	go dir.Monitor(runCtx, time.Duration(cfg.Discovery.IntervalSec)*time.Second)

	if cfg.Discovery.MDNSEnabled {
		go func() {
			if _, err := dir.BrowseMDNS(runCtx,
				time.Duration(cfg.Discovery.TimeoutMs)*time.Millisecond); err != nil {
				appLogger.Debug("mDNS browse failed", "error", err)
			}
		}()
	}

	web := newWebServer(q, dir, hub, store, appLogger, cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.HTTPPort),
		Handler: web.handler(),
	}
	go func() {
		appLogger.Info("Web server listening", "port", cfg.Web.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Web server failed", "error", err)
			cancel()
		}
	}()

	<-runCtx.Done()

	appLogger.Info("All-Press engine shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Web server shutdown error", "error", err)
	}
}
