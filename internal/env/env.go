package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"go.uber.org/zap"
)

// Env holds process-level configuration. Durable application settings
// live in the settings table; this only covers what must be known before
// the database is open or what is deployment-specific.
type Env struct {
	DebugMode  bool
	ServerPort int
}

var Value Env

// LoadEnv reads .env (if present) and environment variables into Value.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	Value = Env{
		DebugMode:  parseBool(os.Getenv("DEBUG_MODE")),
		ServerPort: parseInt(os.Getenv("SERVER_PORT")),
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return b
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
