package main

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// zapAdapter bridges zap into the Temporal SDK's logger interface so
// SDK internals log through the same pipeline as the rest of the
// service.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

func newZapAdapter(logger *zap.Logger) log.Logger {
	// Skip one caller frame so log sites point at SDK code, not here.
	return &zapAdapter{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (a *zapAdapter) Debug(msg string, keyvals ...interface{}) { a.sugar.Debugw(msg, keyvals...) }
func (a *zapAdapter) Info(msg string, keyvals ...interface{})  { a.sugar.Infow(msg, keyvals...) }
func (a *zapAdapter) Warn(msg string, keyvals ...interface{})  { a.sugar.Warnw(msg, keyvals...) }
func (a *zapAdapter) Error(msg string, keyvals ...interface{}) { a.sugar.Errorw(msg, keyvals...) }
