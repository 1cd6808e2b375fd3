package core

import (
	"context"
	"sort"
	"strings"
	"time"
)

// observeOperation emits the log line and metric pair for one vault
// operation. Every mutating operation funnels through here so dashboards
// see a uniform treasury.<operation> metric family tagged with the
// configured service identity.
func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	elapsed := time.Since(startedAt)

	tags := map[string]string{
		"operation": operation,
		"status":    outcome,
	}
	if service := strings.TrimSpace(s.config.ServiceName); service != "" {
		tags["service"] = service
	}
	s.recordCounter(ctx, "treasury."+operation+".total", 1, tags)
	s.recordHistogram(ctx, "treasury."+operation+".duration_ms", float64(elapsed.Milliseconds()), tags)

	fields = cloneFields(fields)
	fields["event_type"] = operation
	fields["status"] = outcome
	fields["duration_ms"] = elapsed.Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		s.logError(ctx, operation+" failed", fields)
		return
	}
	s.logInfo(ctx, operation+" succeeded", fields)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	if logger, args, ok := s.operationLogger(ctx, fields); ok {
		logger.Info(message, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, message string, fields map[string]any) {
	if logger, args, ok := s.operationLogger(ctx, fields); ok {
		logger.Warn(message, args...)
	}
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	if logger, args, ok := s.operationLogger(ctx, fields); ok {
		logger.Error(message, args...)
	}
}

// operationLogger binds the request context and structured fields onto the
// service logger. Loggers that accept field maps get the fields attached;
// every logger gets them flattened into key/value args.
func (s *Service) operationLogger(ctx context.Context, fields map[string]any) (Logger, []any, bool) {
	if s == nil || s.logger == nil {
		return nil, nil, false
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	return logger, flattenFields(fields), true
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

// flattenFields turns a field map into sorted key/value args, so log lines
// stay stable across runs.
func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
