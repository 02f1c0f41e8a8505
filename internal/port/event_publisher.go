package port

import (
	"context"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

type EventPublisher interface {
	PublishStockEvent(ctx context.Context, event domain.StockEvent) error
	Close() error
}
