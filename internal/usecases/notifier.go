package usecases

import (
	"context"

	"giveora.backend/internal/infrastructure/notification"
	"giveora.backend/pkg/logger"
	"go.uber.org/zap"
)

// Notifier queues outbound notifications
type Notifier interface {
	Enqueue(ctx context.Context, msg notification.Message) error
}

// notify never fails the caller. Delivery problems are only logged.
func notify(ctx context.Context, n Notifier, msg notification.Message) {
	if n == nil {
		return
	}
	if err := n.Enqueue(ctx, msg); err != nil {
		logger.Error(ctx, "Failed to queue notification",
			zap.String("template", string(msg.Template)),
			zap.String("to", logger.MaskEmail(msg.To)),
			zap.Error(err),
		)
	}
}
