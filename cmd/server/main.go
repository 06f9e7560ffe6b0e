package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/env"
	"github.com/nantokaworks/challenge-wheel/internal/hotkeys"
	"github.com/nantokaworks/challenge-wheel/internal/ledger"
	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/shared/paths"
	"github.com/nantokaworks/challenge-wheel/internal/version"
	"github.com/nantokaworks/challenge-wheel/internal/webserver"
	"go.uber.org/zap"
)

// Headless mode: the full overlay and REST surface without the desktop
// window. Useful on a streaming PC where the control UI runs in a
// browser tab.
func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting challenge-wheel server (headless mode)", zap.String("version", version.String()))

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	db, err := localdb.SetupDB(paths.GetDBPath())
	if err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}

	// env.LoadEnv must run after DB initialization.
	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if err := localdb.MigrateLegacyStore(); err != nil {
		logger.Error("Failed to migrate legacy store", zap.Error(err))
	}
	if err := localdb.SeedDefaultData(); err != nil {
		logger.Error("Failed to seed default data", zap.Error(err))
	}

	settingsManager := settings.NewSettingsManager(db)
	if err := settingsManager.InitializeDefaultSettings(); err != nil {
		logger.Error("Failed to initialize default settings", zap.Error(err))
	}

	donationLedger := ledger.New()
	wheelEngine := engine.New(webserver.NewWSNotifier(), donationLedger, settingsManager, engine.Options{})
	dispatcher := hotkeys.NewDispatcher(wheelEngine, settingsManager)

	port := 8080
	if env.Value.ServerPort != 0 {
		port = env.Value.ServerPort
	}

	err = webserver.StartWebServer(port, webserver.Deps{
		Engine:   wheelEngine,
		Ledger:   donationLedger,
		Settings: settingsManager,
		Hotkeys:  dispatcher,
	})
	if err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Server ready",
		zap.Int("port", port),
		zap.String("overlay", fmt.Sprintf("http://localhost:%d/overlay/", port)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	wheelEngine.Stop()
	webserver.Shutdown()
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}
}
