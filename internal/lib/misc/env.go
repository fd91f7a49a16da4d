package misc

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvSettings loads .env.local then .env - .env.local wins for anything
// defined in both.  Missing files are fine.
func LoadEnvSettings(logger *slog.Logger) {
	load(logger, ".env.local", ".env")
}

// LoadEnvFile loads an explicitly named env file, erroring if it's missing.
func LoadEnvFile(logger *slog.Logger, filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("env file %s not found: %w", filename, err)
	}
	load(logger, filename)
	return nil
}

func load(logger *slog.Logger, filenames ...string) {
	for _, filename := range filenames {
		if err := godotenv.Load(filename); err == nil {
			Debugf(logger, "loaded env file:%s", filename)
		}
	}
	// Environment values may point at mounted secret files
	// (FOO_FILE=/run/secrets/foo); resolve those into the secrets map.
	for _, envVal := range os.Environ() {
		key, value, _ := strings.Cut(envVal, "=")
		if name, found := strings.CutSuffix(key, "_FILE"); found {
			data, err := os.ReadFile(value)
			if err != nil {
				Warnf(logger, "unable to read secret file %s for %s: %v", value, key, err)
				continue
			}
			secretsMap[name] = strings.TrimSpace(string(data))
		}
	}
}
