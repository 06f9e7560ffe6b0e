package webserver

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/hotkeys"
	"github.com/nantokaworks/challenge-wheel/internal/ledger"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface drives. Constructed once at
// startup and injected here instead of living as ambient globals in their
// own packages.
type Deps struct {
	Engine   *engine.Engine
	Ledger   *ledger.Ledger
	Settings *settings.SettingsManager
	Hotkeys  *hotkeys.Dispatcher
}

var (
	httpServer *http.Server
	webAssets  *embed.FS // 埋め込みアセット（Wailsビルド時に使用）
	deps       Deps
)

// SetWebAssets sets the embedded web assets for serving
func SetWebAssets(assets *embed.FS) {
	webAssets = assets
}

// Configure injects the server's collaborators. Exposed for tests.
func Configure(d Deps) {
	deps = d
}

// corsMiddleware adds CORS headers to HTTP handlers
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()

	RegisterWebSocketRoute(mux)

	// Wheel registry
	mux.HandleFunc("/api/wheels", corsMiddleware(handleWheels))
	mux.HandleFunc("/api/wheels/active", corsMiddleware(handleActiveWheel))
	mux.HandleFunc("/api/wheels/", corsMiddleware(handleWheelByPath))

	// Challenge engine
	mux.HandleFunc("/api/challenge", corsMiddleware(handleChallengeState))
	mux.HandleFunc("/api/challenge/spin", corsMiddleware(handleChallengeSpin))
	mux.HandleFunc("/api/challenge/progress", corsMiddleware(handleChallengeProgress))
	mux.HandleFunc("/api/challenge/pause", corsMiddleware(handleChallengePause))
	mux.HandleFunc("/api/challenge/fail", corsMiddleware(handleChallengeFail))
	mux.HandleFunc("/api/challenge/complete", corsMiddleware(handleChallengeComplete))

	// Donation ledger
	mux.HandleFunc("/api/stats", corsMiddleware(handleStats))
	mux.HandleFunc("/api/donations", corsMiddleware(handleDonations))
	mux.HandleFunc("/api/donations/export", corsMiddleware(handleDonationsExport))
	mux.HandleFunc("/api/donations/", corsMiddleware(handleDonationByPath))
	mux.HandleFunc("/api/session/reset", corsMiddleware(handleSessionReset))

	// Settings / hotkeys
	mux.HandleFunc("/api/settings", corsMiddleware(handleSettings))
	mux.HandleFunc("/api/hotkeys", corsMiddleware(handleHotkeys))
	mux.HandleFunc("/api/hotkey", corsMiddleware(handleHotkeyDispatch))

	// ヘルスチェック
	mux.HandleFunc("/status", handleStatus)

	// Legacy route: redirect old overlay path to /overlay/*
	mux.HandleFunc("/overlay", func(w http.ResponseWriter, r *http.Request) {
		target := "/overlay/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("/overlay/", overlayHandler())
	mux.HandleFunc("/", controlUIHandler())

	return mux
}

// overlayHandler serves the OBS browser-source page, embedded assets
// first with SPA fallback to index.html.
func overlayHandler() http.HandlerFunc {
	overlayFS, overlayServer := assetServer("web/dist", []string{"./web/dist", "./public"})

	return func(w http.ResponseWriter, r *http.Request) {
		strippedHandler := http.StripPrefix("/overlay", overlayServer)

		if overlayFS != nil {
			rel := strings.TrimPrefix(r.URL.Path, "/overlay")
			rel = strings.TrimPrefix(rel, "/")
			if rel == "" {
				rel = "index.html"
			}

			if file, err := overlayFS.Open(rel); err == nil {
				file.Close()
				strippedHandler.ServeHTTP(w, r)
				return
			}

			// SPA fallback
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if indexFile, err := overlayFS.Open("index.html"); err == nil {
				defer indexFile.Close()
				if data, err := io.ReadAll(indexFile); err == nil {
					w.Write(data)
				}
			}
			return
		}

		strippedHandler.ServeHTTP(w, r)
	}
}

// controlUIHandler serves the settings/control SPA at the root.
func controlUIHandler() http.HandlerFunc {
	_, uiServer := assetServer("frontend/dist", []string{"./frontend/dist", "./dist/frontend"})
	return func(w http.ResponseWriter, r *http.Request) {
		uiServer.ServeHTTP(w, r)
	}
}

// assetServer resolves a static asset root, embedded assets first,
// then filesystem fallbacks relative to executable and cwd.
func assetServer(embedRoot string, fsFallbacks []string) (fs.FS, http.Handler) {
	if webAssets != nil {
		if sub, err := fs.Sub(webAssets, embedRoot); err == nil {
			return sub, http.FileServer(http.FS(sub))
		}
		logger.Warn("Embedded assets not found, falling back to filesystem", zap.String("root", embedRoot))
	}

	possiblePaths := []string{}
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		possiblePaths = append(possiblePaths, filepath.Join(execDir, embedRoot))
	}
	possiblePaths = append(possiblePaths, fsFallbacks...)

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			logger.Info("Using static files directory", zap.String("path", path))
			return nil, http.FileServer(http.Dir(path))
		}
	}

	logger.Warn("No static files directory found, using default", zap.String("root", embedRoot))
	return nil, http.FileServer(http.Dir(fsFallbacks[0]))
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	state, _ := deps.Engine.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","engine_state":%q}`, state)
}

// StartWebServer starts the HTTP/WebSocket surface for the OBS overlay
// and the control UI.
func StartWebServer(port int, d Deps) error {
	Configure(d)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting web server", zap.String("address", addr))

	httpServer = &http.Server{
		Addr:         addr,
		Handler:      newMux(),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine and wait briefly to check for immediate errors
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	return nil
}

// Shutdown gracefully shuts down the web server
func Shutdown() {
	if httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
	} else {
		logger.Info("Web server shutdown complete")
	}
}
