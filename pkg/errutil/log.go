// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" when err has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}

// LogError logs err at error level. For oops errors the code and context map
// are logged as separate attributes; extra attrs are appended as given.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogErrorContext(context.Background(), logger, msg, err, attrs...)
}

// LogErrorContext is LogError with a context so trace ids reach the handler.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	args := make([]any, 0, len(attrs)+6)
	args = append(args, attrs...)

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		args = append(args, "error", err)
		logger.ErrorContext(ctx, msg, args...)
		return
	}

	args = append(args, "error", oopsErr.Error())
	if code := Code(err); code != "" {
		args = append(args, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		args = append(args, "context", errCtx)
	}
	logger.ErrorContext(ctx, msg, args...)
}
