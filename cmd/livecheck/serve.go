package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/livecheck/internal/app"
	"github.com/ayusman/livecheck/internal/capture"
	"github.com/ayusman/livecheck/internal/detector"
	"github.com/ayusman/livecheck/internal/liveness"
	"github.com/ayusman/livecheck/internal/plugin"
	"github.com/ayusman/livecheck/internal/server"
	"github.com/ayusman/livecheck/internal/server/api"
	"github.com/ayusman/livecheck/internal/tray"
)

var withTray bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the liveness check with the HTTP API and live view",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withTray, "tray", false, "show a system tray menu")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store opened", zap.String("path", st.Path()))

	var faces detector.Detector
	if sd, err := detector.NewServiceDetector(detector.Config{
		MinConfidence: cfg.MinConfidence,
		ScriptPath:    cfg.DetectorScript,
		PythonPath:    cfg.PythonPath,
		IdleTimeout:   cfg.DetectorIdle,
	}); err == nil {
		faces = sd
		logger.Info("using landmark service")
	} else {
		logger.Warn("landmark service not available, no faces will be detected", zap.Error(err))
		faces = detector.NewMockDetector()
	}

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		logger.Warn("discover plugins", zap.String("dir", cfg.PluginDir), zap.Error(err))
	}
	for name, err := range plugins.Skipped() {
		logger.Warn("plugin skipped", zap.String("plugin", name), zap.Error(err))
	}

	var exporter api.Exporter
	if cfg.ExportPlugin != "" {
		exporter = plugin.NewExporter(plugins, plugin.NewExecutor(int(cfg.ExportTimeout.Milliseconds())),
			cfg.ExportPlugin, nil, logger)
	}

	frames := capture.NewFrameBuffer()

	var application *app.App
	hub := server.NewHub(func() liveness.Status { return application.Status() }, logger)

	application = app.New(app.Config{
		Camera:            capture.NewCamera(cfg.Camera),
		Detector:          faces,
		Store:             st,
		Exporter:          exporter,
		Frames:            frames,
		Listener:          hub,
		Liveness:          cfg.Liveness,
		TickInterval:      cfg.TickInterval,
		AutoStart:         cfg.AutoStart,
		PresenceThreshold: cfg.PresenceThreshold,
		Logger:            logger,
	})
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer application.Stop()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		logger.Info("serving static files", zap.String("dir", staticDir))
	}

	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      st,
		Frames:     frames,
		Controller: application,
		Hub:        hub,
		Plugins:    plugins,
		Exporter:   exporter,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Addr)
		cancel()
	}()

	if withTray {
		runTray(ctx, cancel, application)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return <-errCh
	}
}

// runTray blocks on the tray menu until Quit is clicked or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, application *app.App) {
	t := tray.New()
	t.OnRestart(func() {
		if err := application.Restart(); err != nil {
			logger.Warn("restart from tray", zap.Error(err))
		}
	})
	t.OnOpen(func() {
		if err := openBrowser("http://" + cfg.Addr); err != nil {
			logger.Warn("open browser", zap.Error(err))
		}
	})
	t.OnQuit(cancel)

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				t.SetStatus(application.Status())
			}
		}
	}()

	t.Run()
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data-dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(cfg.DataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
