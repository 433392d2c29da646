package env

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

// LoadEnv loads variables from the given .env files (default ".env") into
// the process environment without overriding variables that are already set.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logging.Log.Debug("⚠️ No .env file found, using system envs")
	}
}

func GetEnv(key string, fallback string) string {
	if value, exist := os.LookupEnv(key); exist {
		return value
	}
	return fallback
}
