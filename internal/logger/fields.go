package logger

import (
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// FieldRequestID is the structured log field key for the HTTP request id.
	FieldRequestID = "request_id"
	// FieldCatalogVersion is the structured log field key for the catalog build id.
	FieldCatalogVersion = "catalog_version"
	// FieldListingID is the structured log field key for a listing id.
	FieldListingID = "listing_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RequestFields returns the fields identifying a request against a catalog build.
func RequestFields(requestID, catalogVersion string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRequestID, Value: requestID},
		StringField{Key: FieldCatalogVersion, Value: catalogVersion},
	)
}

// WithRequest attaches the request fields to the provided logger.
func WithRequest(logger *zap.Logger, requestID, catalogVersion string) *zap.Logger {
	return WithFields(logger, RequestFields(requestID, catalogVersion)...)
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

// Cron adapts a zap logger to the cron.Logger interface. Routine scheduler chatter goes to debug.
func Cron(logger *zap.Logger) cron.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cronLogger{sugar: logger.Sugar()}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
