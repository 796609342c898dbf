package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/utils"
)

var tracer = otel.Tracer("github.com/cppla/postwall/services")

func startSpan(ctx context.Context, name string, actorID uint) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.Int64("actor.id", int64(actorID)))
	return ctx, span
}

// finish ends the span and logs internal failures with their cause. The
// cause never leaves the process; callers only see the generic message.
func finish(span trace.Span, op string, err error) {
	if err != nil {
		kind := models.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		if kind == models.KindInternal {
			utils.Logger.Error("operation failed", zap.String("op", op), zap.Error(err))
		}
	}
	span.End()
}

// asAppError passes AppErrors through and wraps anything else as internal.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}
