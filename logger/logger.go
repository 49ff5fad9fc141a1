// Package logger builds the process wide zap logger and serves its level
// over HTTP.
package logger

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var atomicLevel = zap.NewAtomicLevel()

// Config holds configuration for the process logger
type Config struct {
	Service  string
	Hostname string
	Level    string

	// Dir receives <service>.log rotated by size when set
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Initialize builds a JSON logger writing to stdout and, optionally, a
// rotated file, and installs it as the global zap logger
func Initialize(cfg Config) (*zap.Logger, error) {
	if err := SetLevel(cfg.Level); err != nil {
		return nil, err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), zapcore.Lock(os.Stdout), atomicLevel),
	}

	if cfg.Dir != "" {
		if cfg.MaxSizeMB == 0 {
			cfg.MaxSizeMB = 256
		}
		if cfg.MaxAgeDays == 0 {
			cfg.MaxAgeDays = 1
		}
		if cfg.MaxBackups == 0 {
			cfg.MaxBackups = 1
		}
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, cfg.Service+".log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), sink, atomicLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.Fields(
			zap.String("app", cfg.Service),
			zap.String("host", cfg.Hostname),
		),
	)
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// EncoderConfig is the production encoder with RFC3339 timestamps
func EncoderConfig() zapcore.EncoderConfig {
	encConf := zap.NewProductionEncoderConfig()
	encConf.EncodeTime = zapcore.RFC3339TimeEncoder
	return encConf
}

// SetLevel changes the level of every core built by Initialize. An empty
// level means info.
func SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	atomicLevel.SetLevel(l)
	return nil
}

// GetLevel returns the current level
func GetLevel() string {
	return atomicLevel.Level().String()
}

type verbosity struct {
	Level string `json:"verbosity"`
}

// VerbosityHandler reports the level on GET and changes it on PUT with the
// "v" query parameter
func VerbosityHandler(w http.ResponseWriter, r *http.Request) {
	log := zap.L()

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verbosity{Level: GetLevel()})

	case http.MethodPut, http.MethodPost:
		level := r.URL.Query().Get("v")
		if level == "" {
			http.Error(w, "'v' parameter is not set", http.StatusBadRequest)
			return
		}
		if err := SetLevel(level); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Info("updating logging level", zap.String("level", level))
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
