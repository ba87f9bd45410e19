package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the embedding provider name.
	FieldProvider = "embedding_provider"
	// FieldModel is the structured log field key for the embedding model identifier.
	FieldModel = "embedding_model"
	// FieldSubject identifies the entity matches are requested for.
	FieldSubject = "subject_id"
	// FieldCandidate identifies the entity being scored against the subject.
	FieldCandidate = "candidate_id"
	// FieldRequest correlates all entries of one match request.
	FieldRequest = "request_id"
	// FieldDirection is either jobs_for_professional or professionals_for_job.
	FieldDirection = "direction"
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

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the embedding provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the provider fields to logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// WithCandidate scopes a request logger to one candidate.
func WithCandidate(logger *zap.Logger, candidateID string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldCandidate, Value: candidateID})...)
}

// WithRequest scopes logger to a single match request.
func WithRequest(logger *zap.Logger, requestID, direction, subjectID string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldRequest, Value: requestID},
		StringField{Key: FieldDirection, Value: direction},
		StringField{Key: FieldSubject, Value: subjectID},
	)...)
}
