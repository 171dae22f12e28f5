package logger

import (
	"go.uber.org/zap"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// WhatsAppAdapter routes whatsmeow's printf-style logging into zap
type WhatsAppAdapter struct {
	sugar *zap.SugaredLogger
}

// NewWhatsAppAdapter creates a whatsmeow logger for a module
func NewWhatsAppAdapter(log *zap.Logger, module string) waLog.Logger {
	return &WhatsAppAdapter{
		sugar: log.Named(module).Sugar(),
	}
}

// Debugf logs at debug level
func (a *WhatsAppAdapter) Debugf(msg string, args ...interface{}) {
	a.sugar.Debugf(msg, args...)
}

// Infof logs at info level
func (a *WhatsAppAdapter) Infof(msg string, args ...interface{}) {
	a.sugar.Infof(msg, args...)
}

// Warnf logs at warn level
func (a *WhatsAppAdapter) Warnf(msg string, args ...interface{}) {
	a.sugar.Warnf(msg, args...)
}

// Errorf logs at error level
func (a *WhatsAppAdapter) Errorf(msg string, args ...interface{}) {
	a.sugar.Errorf(msg, args...)
}

// Sub returns a logger for a child module
func (a *WhatsAppAdapter) Sub(module string) waLog.Logger {
	return &WhatsAppAdapter{
		sugar: a.sugar.Named(module),
	}
}
