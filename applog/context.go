package applog

import (
	"context"
	"go.uber.org/zap"
)

type logContextFieldKey struct{}

// FromContext returns the global logger decorated with the fields stored
// in ctx.
func FromContext(ctx context.Context) *Logger {
	return globalLogger.With(getContextFields(ctx)...)
}

// WithLobby tags every entry logged through ctx with the lobby id.
func WithLobby(ctx context.Context, lobbyID string) context.Context {
	return AddContextFields(ctx, zap.String("lobbyId", lobbyID))
}

func WithPlayer(ctx context.Context, player string) context.Context {
	return AddContextFields(ctx, zap.String("player", player))
}

func getContextFields(ctx context.Context) []zap.Field {
	fields, ok := ctx.Value(logContextFieldKey{}).([]zap.Field)
	if !ok {
		return nil
	}
	return fields
}

// mergeContextFields puts the new fields first; a stored field whose key is
// overridden is dropped.
func mergeContextFields(ctx context.Context, fields ...zap.Field) []zap.Field {
	current := getContextFields(ctx)
	overridden := make(map[string]bool, len(fields))
	result := make([]zap.Field, 0, len(current)+len(fields))

	for _, f := range fields {
		if overridden[f.Key] {
			continue
		}
		overridden[f.Key] = true
		result = append(result, f)
	}

	for _, f := range current {
		if overridden[f.Key] {
			continue
		}
		overridden[f.Key] = true
		result = append(result, f)
	}

	return result
}

func AddContextFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, logContextFieldKey{}, mergeContextFields(ctx, fields...))
}
