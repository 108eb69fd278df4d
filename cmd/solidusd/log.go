// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/solidus-project/solidus/bank"
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/ledger"
	"github.com/solidus-project/solidus/pvorm"
	"github.com/solidus-project/solidus/repo"
	"github.com/solidus-project/solidus/types"
	"github.com/solidus-project/solidus/zk"
)

const defaultLogFilename = "solidusd.log"

const (
	black color = iota + 30
	red
	green
	yellow
	blue
	magenta
	cyan
	white
)

// color represents a text color.
type color uint8

// Add adds the coloring to the given string.
func (c color) Add(s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", uint8(c), s)
}

var logLevelMap = map[string]zapcore.Level{
	"debug":   zap.DebugLevel,
	"info":    zap.InfoLevel,
	"warning": zap.WarnLevel,
	"error":   zap.ErrorLevel,
}

var logLevelSeverity = map[zapcore.Level]string{
	zapcore.DebugLevel: "DEBUG",
	zapcore.InfoLevel:  "INFO",
	zapcore.WarnLevel:  "WARNING",
	zapcore.ErrorLevel: "ERROR",
}

// setupLogging builds the process-wide zap logger the way
// iskiy-ilxd/log.go does: a colorized console encoder for development,
// an optional lumberjack-rotated file hook, then fans the resulting
// *zap.SugaredLogger out to every package that keeps its own
// package-level logger.
func setupLogging(logDir, level string, devMode bool) (*zap.AtomicLevel, error) {
	var cfg zap.Config
	if devMode {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logLevel, ok := logLevelMap[strings.ToLower(level)]
	if !ok {
		return nil, errors.New("invalid log level")
	}
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	levelToColor := map[zapcore.Level]color{
		zapcore.DebugLevel: magenta,
		zapcore.InfoLevel:  blue,
		zapcore.WarnLevel:  yellow,
		zapcore.ErrorLevel: red,
	}
	cfg.EncoderConfig.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + levelToColor[l].Add(logLevelSeverity[l]) + "]")
	}
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.ConsoleSeparator = "  "

	var (
		logger *zap.Logger
		err    error
	)
	if logDir != "" {
		logRotator := &lumberjack.Logger{
			Filename:   path.Join(logDir, defaultLogFilename),
			MaxSize:    10,
			MaxAge:     30,
			MaxBackups: 3,
		}
		hook := func(e zapcore.Entry) error {
			_, werr := logRotator.Write([]byte(fmt.Sprintf("%+v\n", e)))
			return werr
		}
		logger, err = cfg.Build(zap.Hooks(hook))
	} else {
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	sugar := zap.S()
	repo.UpdateLogger(sugar)
	ec.UpdateLogger(sugar)
	zk.UpdateLogger(sugar)
	types.UpdateLogger(sugar)
	pvorm.UpdateLogger(sugar)
	ledger.UpdateLogger(sugar)
	bank.UpdateLogger(sugar)
	return &cfg.Level, nil
}
