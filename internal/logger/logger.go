package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	log.SetOutput(os.Stdout)

	Logger = log
	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// WithService creates a logger with service context
func WithService(serviceName string) *logrus.Entry {
	return GetLogger().WithField("service", serviceName)
}

// WithSimulation adds simulation run context to base, or to the global logger
// when base is nil.
func WithSimulation(base *logrus.Logger, simulationID, format string) *logrus.Entry {
	return orGlobal(base).WithFields(logrus.Fields{
		"simulation_id": simulationID,
		"format":        format,
	})
}

// WithHTTPContext adds HTTP request context to base, or to the global logger
// when base is nil.
func WithHTTPContext(base *logrus.Logger, method, path, clientIP string) *logrus.Entry {
	return orGlobal(base).WithFields(logrus.Fields{
		"http_method": method,
		"http_path":   path,
		"client_ip":   clientIP,
	})
}

func orGlobal(base *logrus.Logger) *logrus.Logger {
	if base == nil {
		return GetLogger()
	}
	return base
}
