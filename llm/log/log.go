/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log is the process-wide logger. It keeps a printf-style surface
// over a zap core so call sites stay short.
package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	ErrorLevel = zapcore.ErrorLevel
)

var (
	level  = zap.NewAtomicLevelAt(InfoLevel)
	logger atomic.Pointer[zap.Logger]
)

func init() {
	logger.Store(newDefault())
}

func newDefault() *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// SetLogLevel changes the minimum level of the default logger.
func SetLogLevel(l Level) {
	level.SetLevel(l)
}

// SetLogger replaces the underlying logger, e.g. with an observer in tests.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = newDefault()
	}
	logger.Store(l)
}

// Logger returns the underlying structured logger.
func Logger() *zap.Logger {
	return logger.Load().WithOptions(zap.AddCallerSkip(-1))
}

// With returns a structured child logger.
func With(fields ...zap.Field) *zap.Logger {
	return Logger().With(fields...)
}

func Debug(format string, args ...any) {
	logger.Load().Sugar().Debugf(format, args...)
}

func Info(format string, args ...any) {
	logger.Load().Sugar().Infof(format, args...)
}

func Error(format string, args ...any) {
	logger.Load().Sugar().Errorf(format, args...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = logger.Load().Sync()
}
