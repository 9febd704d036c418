package http

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// logFailure logs a failed entry point. Client errors are warnings.
func logFailure(ctx context.Context, logger *slog.Logger, operation string, err error, attrs ...slog.Attr) {
	level := slog.LevelError
	if apperrors.HTTPStatus(err) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	attrs = append(attrs,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	logger.LogAttrs(ctx, level, operation+" failed", attrs...)
}
