// Copyright 2025 The MCP OAuth Gateway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides a single process-wide structured logger, built on
// zap, in the shape of a small set of package-level functions rather than a
// logger object threaded through every call site.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[zap.SugaredLogger]

func init() {
	l, _ := zap.NewProduction()
	global.Store(l.Sugar())
}

// Initialize replaces the global logger. level must be one of "debug", "info",
// "warn", "error"; unrecognized values fall back to "info". development enables
// human-readable console output instead of JSON, matching local developer use.
func Initialize(level string, development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	var zl zap.AtomicLevel
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		zl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = zl

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	global.Store(l.Sugar())
	return nil
}

// Get returns the current global logger.
func Get() *zap.SugaredLogger {
	return global.Load()
}

// Debugw logs a debug-level message with structured key/value pairs.
func Debugw(msg string, kv ...interface{}) { Get().Debugw(msg, kv...) }

// Infow logs an info-level message with structured key/value pairs.
func Infow(msg string, kv ...interface{}) { Get().Infow(msg, kv...) }

// Warnw logs a warn-level message with structured key/value pairs.
func Warnw(msg string, kv ...interface{}) { Get().Warnw(msg, kv...) }

// Errorw logs an error-level message with structured key/value pairs.
func Errorw(msg string, kv ...interface{}) { Get().Errorw(msg, kv...) }

// Debug logs a plain debug-level message.
func Debug(msg string) { Get().Debug(msg) }

// Info logs a plain info-level message.
func Info(msg string) { Get().Info(msg) }

// Sync flushes any buffered log entries. Call before process exit.
func Sync() error {
	return Get().Sync()
}
