package env

import (
	"os"
	"strconv"
	"time"

	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

func Get(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable is not an integer, using default", "env_var", key, "value", valStr, "default", defaultVal)
		}
		return defaultVal
	}
	return i
}

func GetDuration(key string, defaultVal time.Duration, log *logger.Logger) time.Duration {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable is not a duration, using default", "env_var", key, "value", valStr, "default", defaultVal)
		}
		return defaultVal
	}
	return d
}
