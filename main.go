package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"macroclock/bridge"
	"macroclock/cli"
	"macroclock/config"
	"macroclock/handlers"
	"macroclock/host"
	"macroclock/metrics"
	"macroclock/service"
	"macroclock/settings"
	"macroclock/store"
	"macroclock/version"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed static/*
var staticFiles embed.FS

const portSearchRange = 100

// newDiagnosticLogs keeps the latest warnings and errors for /api/logs.
func newDiagnosticLogs() *service.LogBuffer {
	return service.NewLogBuffer(200, logrus.WarnLevel)
}

func main() {
	config.ParseFlags()
	cfg := config.Settings

	logFile, err := setupLogging(cfg.LogFilePath, cfg.LogLevel, !cfg.CLIMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if cfg.CLIMode {
		mainCLI(cfg.CLIServer)
		return
	}

	if err := run(cfg, logrus.StandardLogger()); err != nil {
		logrus.WithError(err).Error("Settings bridge stopped")
		logFile.Close()
		os.Exit(1)
	}
}

// app is everything run has to tear down on exit.
type app struct {
	bridge *bridge.Bridge
	store  store.Store
	link   *host.WatchLink
	router http.Handler
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	logs := newDiagnosticLogs()
	logger.AddHook(logs)

	layout, err := settings.LayoutByName(cfg.ConfigLayout, cfg.ConfigHost)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration layout: %w", err)
	}

	st, err := store.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	logger.WithField("backend", cfg.StoreBackend).Info("Settings store ready")

	mgr := metrics.NewManager()
	webview := host.NewWebview(256, logger)
	webview.SetOnOpenCallback(announcePage(logger))
	link := host.NewWatchLink(time.Duration(cfg.AckTimeoutSeconds)*time.Second, logger)
	link.SetOnStateChange(mgr.SetWatchConnected)

	b, err := bridge.New(bridge.Options{
		Store:      st,
		Opener:     webview,
		Sender:     link,
		Layout:     layout,
		StorageKey: cfg.StorageKey,
		Logger:     logger,
		Recorder:   mgr,
		Retry: bridge.RetryPolicy{
			MaxRetries:     cfg.DeliveryMaxRetries,
			InitialBackoff: time.Duration(cfg.DeliveryBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.DeliveryMaxBackoffMS) * time.Millisecond,
		},
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create settings bridge: %w", err)
	}
	service.InitServices(b, st, webview, link, logs)

	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.Writer()
	gin.DefaultErrorWriter = logger.WriterLevel(logrus.ErrorLevel)
	gin.DisableConsoleColor()

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		bridge: b,
		store:  st,
		link:   link,
		router: handlers.NewRouter(handlers.RouterOptions{
			Static:      staticFS,
			Metrics:     mgr.Handler(),
			WatchLink:   link,
			WaitTimeout: deliveryWaitTimeout(cfg),
		}),
	}, nil
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	logger.WithField("version", version.GetFullVersion()).Info("Settings bridge starting")

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	ln, port, err := listenFirstFree(cfg.Port)
	if err != nil {
		a.store.Close()
		return err
	}
	if port != cfg.Port {
		logger.Warnf("Port %d is busy, using %d", cfg.Port, port)
	}

	srv := &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Dashboard on http://127.0.0.1:%d/", port)
		logger.Infof("Watchface link on ws://127.0.0.1:%d%s", port, host.WatchPath)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go func() {
		time.Sleep(1500 * time.Millisecond)
		openBrowser(fmt.Sprintf("http://127.0.0.1:%d/", port))
	}()

	shutdownChan := make(chan bool, 1)
	handlers.SetShutdownChannel(shutdownChan)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Received signal")
	case <-shutdownChan:
		logger.Info("Shutdown triggered via API")
	case err = <-serveErr:
		logger.WithError(err).Error("HTTP server failed")
	}

	a.shutdown(srv, logger)
	return err
}

// shutdown stops retries first, then drops the watch so pending sends
// resolve, then drains HTTP before closing the store.
func (a *app) shutdown(srv *http.Server, logger *logrus.Logger) {
	logger.Info("Settings bridge shutting down")
	a.bridge.Close()
	if err := a.link.Close(); err != nil {
		logger.WithError(err).Warn("Error closing watch link")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Server forced to shutdown")
	}
	if err := a.store.Close(); err != nil {
		logger.WithError(err).Warn("Error closing settings store")
	}
	logger.Info("Settings bridge stopped")
}

// announcePage tells the operator where the configuration page is, since
// the phone reaches it through the dashboard QR code.
func announcePage(logger *logrus.Logger) func(url string) {
	return func(url string) {
		logger.WithField("url", url).Info("Configuration page ready, scan the QR code on the dashboard")
	}
}

// deliveryWaitTimeout covers every attempt and backoff of one delivery.
func deliveryWaitTimeout(cfg *config.Config) time.Duration {
	ack := time.Duration(cfg.AckTimeoutSeconds) * time.Second
	backoff := time.Duration(cfg.DeliveryMaxBackoffMS) * time.Millisecond
	retries := time.Duration(max(cfg.DeliveryMaxRetries, 0))
	return ack*(retries+1) + backoff*retries + 5*time.Second
}

// listenFirstFree binds the first free port at or above start and keeps
// the listener, so nothing can take the port between the check and Serve.
func listenFirstFree(start int) (net.Listener, int, error) {
	for port := start; port < start+portSearchRange; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d", start, start+portSearchRange-1)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Warnf("Failed to open browser, open %s manually", url)
		return
	}
	// Reap the child.
	go func() {
		if err := cmd.Wait(); err != nil {
			logrus.WithError(err).Debug("Browser process exited with error")
		}
	}()
}

// mainCLI runs the interactive client against a running bridge.
func mainCLI(serverURL string) {
	fmt.Printf("MacroClock CLI - Connecting to %s\n", serverURL)

	c, err := cli.NewCLIHttp(serverURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nTips:")
		fmt.Println("  1. Make sure the settings bridge is running:")
		fmt.Println("     ./macroclock")
		fmt.Println("  2. Or specify a different server:")
		fmt.Println("     ./macroclock --cli --server http://your-server:7790")
		os.Exit(1)
	}
	c.Start()
}
