package main

import (
	"context"
	"embed"
	"log"

	"github.com/wailsapp/wails/v3/pkg/application"
)

//go:embed all:frontend/dist
var assets embed.FS

//go:embed all:web/dist
var webAssets embed.FS

func main() {
	// Create an instance of the app structure
	appInstance := NewApp()

	// Set web assets for the web server
	appInstance.SetWebAssets(&webAssets)

	// Create a new Wails application
	app := application.New(application.Options{
		Name:        "challenge-wheel",
		Description: "Donation challenge wheel for streamers with OBS overlay",
		Services: []application.Service{
			application.NewService(appInstance),
		},
		Assets: application.AssetOptions{
			Handler: application.AssetFileServerFS(assets),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
	})

	// Store app reference for later use (events)
	appInstance.wailsApp = app

	// Create main window (control screen)
	mainWindow := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:            "Challenge Wheel",
		Width:            1400,
		Height:           900,
		MinWidth:         800,
		MinHeight:        600,
		BackgroundColour: application.NewRGB(24, 24, 27),
		URL:              "/",
		Mac: application.MacWindow{
			InvisibleTitleBarHeight: 50,
			Backdrop:                application.MacBackdropTranslucent,
			TitleBar:                application.MacTitleBarHiddenInset,
		},
	})

	// Store mainWindow reference
	appInstance.mainWindow = mainWindow

	// Call startup logic with a context
	ctx := context.Background()
	appInstance.startup(ctx)

	// Run the application
	err := app.Run()

	// Run returns when the last window closes
	appInstance.shutdown(ctx)

	if err != nil {
		log.Fatal(err)
	}
}
