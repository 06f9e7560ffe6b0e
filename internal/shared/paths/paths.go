package paths

import (
	"os"
	"path/filepath"
)

const appDirName = "challenge-wheel"

// DataDir returns the application data directory. CHALLENGE_WHEEL_DATA_DIR
// overrides the default platform location.
func DataDir() string {
	if dir := os.Getenv("CHALLENGE_WHEEL_DATA_DIR"); dir != "" {
		return dir
	}

	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "." + string(filepath.Separator) + appDirName
		}
		base = home
	}
	return filepath.Join(base, appDirName)
}

// EnsureDataDirs creates the data directory tree if missing.
func EnsureDataDirs() error {
	for _, dir := range []string{DataDir(), ExportDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// GetDBPath returns the sqlite database path.
func GetDBPath() string {
	return filepath.Join(DataDir(), "local.db")
}

// ExportDir returns the directory CSV exports are written to.
func ExportDir() string {
	return filepath.Join(DataDir(), "exports")
}
