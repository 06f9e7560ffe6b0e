package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/env"
	"github.com/nantokaworks/challenge-wheel/internal/hotkeys"
	"github.com/nantokaworks/challenge-wheel/internal/ledger"
	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/shared/paths"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"github.com/nantokaworks/challenge-wheel/internal/version"
	"github.com/nantokaworks/challenge-wheel/internal/webserver"
	"github.com/wailsapp/wails/v3/pkg/application"
	"go.uber.org/zap"
)

// App struct
type App struct {
	ctx        context.Context
	webAssets  *embed.FS
	wailsApp   *application.App
	mainWindow *application.WebviewWindow

	settings   *settings.SettingsManager
	ledger     *ledger.Ledger
	engine     *engine.Engine
	dispatcher *hotkeys.Dispatcher
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// SetWebAssets sets the embedded web assets for the web server
func (a *App) SetWebAssets(assets *embed.FS) {
	a.webAssets = assets
}

// startup wires the whole backend: database, migration, seed data,
// settings, ledger, engine, hotkeys and the overlay web server.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// ロガーを早期に初期化（デフォルト設定で）
	logger.Init(false)
	logger.Info("Challenge Wheel Desktop starting...", zap.String("version", version.String()))

	// データディレクトリを確保
	if err := paths.EnsureDataDirs(); err != nil {
		logger.Error("Failed to create data directories", zap.Error(err))
	}

	// データベースを初期化
	db, err := localdb.SetupDB(paths.GetDBPath())
	if err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}
	logger.Info("Database initialized", zap.String("path", paths.GetDBPath()))

	// 環境変数を読み込み（DBが初期化された後）
	env.LoadEnv()

	// ロガーを再初期化（デバッグモード設定を反映）
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	// 旧バージョンのJSONストアを取り込み
	if err := localdb.MigrateLegacyStore(); err != nil {
		logger.Error("Failed to migrate legacy store", zap.Error(err))
	}

	// 初回起動時のデフォルトホイールを投入
	if err := localdb.SeedDefaultData(); err != nil {
		logger.Error("Failed to seed default data", zap.Error(err))
	}

	a.settings = settings.NewSettingsManager(db)
	if err := a.settings.InitializeDefaultSettings(); err != nil {
		logger.Error("Failed to initialize default settings", zap.Error(err))
	}

	a.ledger = ledger.New()
	a.engine = engine.New(webserver.NewWSNotifier(), a.ledger, a.settings, engine.Options{})
	a.dispatcher = hotkeys.NewDispatcher(a.engine, a.settings)

	// Webサーバーを起動（OBSオーバーレイ用）
	go func() {
		port := a.GetServerPort()
		logger.Info("Starting web server for OBS overlay", zap.Int("port", port))
		webserver.SetWebAssets(a.webAssets)
		err := webserver.StartWebServer(port, webserver.Deps{
			Engine:   a.engine,
			Ledger:   a.ledger,
			Settings: a.settings,
			Hotkeys:  a.dispatcher,
		})
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return
		}
		logger.Info("Web server ready", zap.Int("port", port))
	}()

	// ウィンドウ位置の復元
	go func() {
		// UIの初期化を待つ
		time.Sleep(500 * time.Millisecond)
		a.restoreWindowGeometry()
	}()
}

// shutdown is called when the app is shutting down
func (a *App) shutdown(ctx context.Context) {
	logger.Info("Shutting down Challenge Wheel Desktop...")

	a.saveWindowGeometry()

	if a.engine != nil {
		a.engine.Stop()
	}
	webserver.Shutdown()

	if db := localdb.GetDB(); db != nil {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}

	logger.Sync()
}

// --- Window geometry -----------------------------------------------------

func (a *App) restoreWindowGeometry() {
	if a.mainWindow == nil || a.settings == nil {
		return
	}

	width := a.settingInt("WINDOW_WIDTH", 0)
	height := a.settingInt("WINDOW_HEIGHT", 0)
	if width > 0 && height > 0 {
		a.mainWindow.SetSize(width, height)
	}

	x := a.settingInt("WINDOW_X", -1)
	y := a.settingInt("WINDOW_Y", -1)
	if x >= 0 && y >= 0 && a.isPositionVisible(x, y) {
		a.mainWindow.SetRelativePosition(x, y)
	} else {
		a.mainWindow.Center()
	}
	a.mainWindow.Show()
}

// isPositionVisible reports whether the saved origin still lands on a
// connected screen. Platforms without screen enumeration accept any
// position.
func (a *App) isPositionVisible(x, y int) bool {
	screens := GetAllScreensWithPosition()
	if len(screens) == 0 {
		return true
	}
	for _, s := range screens {
		if float64(x) >= s.X && float64(x) < s.X+s.Width &&
			float64(y) >= s.Y && float64(y) < s.Y+s.Height {
			return true
		}
	}
	return false
}

func (a *App) saveWindowGeometry() {
	if a.mainWindow == nil || a.settings == nil {
		return
	}

	x, y := a.mainWindow.RelativePosition()
	width, height := a.mainWindow.Size()
	if width <= 0 || height <= 0 {
		return
	}

	for key, value := range map[string]int{
		"WINDOW_X":      x,
		"WINDOW_Y":      y,
		"WINDOW_WIDTH":  width,
		"WINDOW_HEIGHT": height,
	} {
		if err := a.settings.SetSetting(key, strconv.Itoa(value)); err != nil {
			logger.Warn("Failed to save window geometry", zap.String("key", key), zap.Error(err))
		}
	}
}

func (a *App) settingInt(key string, fallback int) int {
	value, err := a.settings.GetSetting(key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// --- Bound methods (frontend bridge) -------------------------------------

// GetVersion returns the application version string
func (a *App) GetVersion() string {
	return version.String()
}

// GetServerPort returns the configured overlay server port
func (a *App) GetServerPort() int {
	if env.Value.ServerPort != 0 {
		return env.Value.ServerPort
	}
	if port := a.settingInt("SERVER_PORT", 0); port > 0 {
		return port
	}
	return 8080
}

// GetWheels returns all wheels with their challenges
func (a *App) GetWheels() ([]types.Wheel, error) {
	return localdb.GetAllWheels()
}

// CreateWheel creates a wheel with the given name
func (a *App) CreateWheel(name string) (*types.Wheel, error) {
	wheel := &types.Wheel{Name: name}
	if err := localdb.InsertWheel(wheel); err != nil {
		return nil, err
	}
	return wheel, nil
}

// RenameWheel renames an existing wheel
func (a *App) RenameWheel(id, name string) error {
	return localdb.UpdateWheel(id, name)
}

// DeleteWheel removes a wheel and its challenges
func (a *App) DeleteWheel(id string) error {
	return localdb.DeleteWheel(id)
}

// GetActiveWheel returns the wheel the next spin will use
func (a *App) GetActiveWheel() (*types.Wheel, error) {
	return localdb.GetActiveWheel()
}

// SetActiveWheel selects the wheel used for spins
func (a *App) SetActiveWheel(id string) error {
	return localdb.SetActiveWheelID(id)
}

// AddChallenge adds a challenge to a wheel
func (a *App) AddChallenge(wheelID string, c types.Challenge) (*types.Challenge, error) {
	if err := localdb.AddChallengeToWheel(wheelID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateChallenge updates a challenge template on a wheel
func (a *App) UpdateChallenge(wheelID string, c types.Challenge) error {
	return localdb.UpdateWheelChallenge(wheelID, c)
}

// DeleteChallenge removes a challenge from a wheel
func (a *App) DeleteChallenge(wheelID, challengeID string) error {
	return localdb.DeleteChallengeFromWheel(wheelID, challengeID)
}

// SpinWheel spins the active wheel
func (a *App) SpinWheel() error {
	return a.engine.SpinActiveWheel()
}

// GetChallengeState returns the engine state and active challenge snapshot
func (a *App) GetChallengeState() map[string]interface{} {
	state, active := a.engine.Snapshot()
	return map[string]interface{}{
		"state":     state,
		"challenge": active,
	}
}

// AdjustProgress changes the running challenge's progress counter
func (a *App) AdjustProgress(delta int) {
	a.engine.AdjustProgress(delta)
}

// TogglePause pauses or resumes the running challenge timer
func (a *App) TogglePause() {
	a.engine.TogglePause()
}

// FailChallenge resolves the running challenge as failed
func (a *App) FailChallenge() {
	a.engine.Fail()
}

// CompleteChallenge resolves the running challenge as completed
func (a *App) CompleteChallenge() {
	a.engine.Complete()
}

// GetStats returns today's session stats and lifetime stats
func (a *App) GetStats() (map[string]types.Stats, error) {
	session, lifetime, err := a.ledger.Stats()
	if err != nil {
		return nil, err
	}
	return map[string]types.Stats{
		"session": session,
		"total":   lifetime,
	}, nil
}

// GetDonationHistory returns all sessions with their donations
func (a *App) GetDonationHistory() ([]types.Session, error) {
	return a.ledger.Sessions()
}

// DeleteDonation removes a single donation
func (a *App) DeleteDonation(id string) error {
	return a.ledger.DeleteDonation(id)
}

// ResetSession clears today's session donations
func (a *App) ResetSession() error {
	return a.ledger.ResetTodaySession()
}

// ExportDonationsCSV writes the donation history to the export
// directory and returns the file path.
func (a *App) ExportDonationsCSV() (string, error) {
	dir := paths.ExportDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("spenden-%s.csv", time.Now().Format("2006-01-02")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := a.ledger.ExportCSV(f); err != nil {
		return "", err
	}

	logger.Info("Donation history exported", zap.String("path", path))
	return path, nil
}

// GetSettings returns all settings merged with defaults
func (a *App) GetSettings() (map[string]settings.Setting, error) {
	return a.settings.GetAllSettings()
}

// UpdateSettings validates and persists the given settings
func (a *App) UpdateSettings(newSettings map[string]string) error {
	for key, value := range newSettings {
		if err := a.settings.SetSetting(key, value); err != nil {
			return err
		}
	}
	return nil
}

// GetHotkeys returns the current action bindings
func (a *App) GetHotkeys() map[hotkeys.Action]string {
	return a.dispatcher.Bindings()
}

// UpdateHotkeys replaces the action bindings, all-or-nothing
func (a *App) UpdateHotkeys(bindings map[hotkeys.Action]string) error {
	return a.dispatcher.Rebind(bindings)
}

// DispatchHotkey routes a captured key press to its configured action
func (a *App) DispatchHotkey(action string) error {
	return a.dispatcher.Dispatch(hotkeys.Action(action))
}
