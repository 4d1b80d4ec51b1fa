package services

import (
	"context"
	"sync"
	"sync/atomic"

	rabbit "storefront/internal/infra/rabbitmq"

	"go.uber.org/zap"
)

const productsCacheKey = "products:all"

// productsGeneration advances on every invalidation. A listing read from the
// database is only cached if no invalidation happened while it was loading.
var productsGeneration atomic.Uint64

// ProductCache is the cache-aside store for the product listing.
type ProductCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// eventBus publishes events off the request path and lets shutdown wait for
// in-flight publishes.
type eventBus struct {
	publisher rabbit.PublisherInterface
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func (b *eventBus) publish(pattern string, evt any) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.publisher.Publish(context.Background(), pattern, evt); err != nil {
			b.logger.Warn("failed to publish event", zap.String("pattern", pattern), zap.Error(err))
			return
		}
		b.logger.Debug("published event", zap.String("pattern", pattern))
	}()
}

func (b *eventBus) wait() { b.wg.Wait() }

func invalidateProducts(ctx context.Context, cache ProductCache, logger *zap.Logger) {
	productsGeneration.Add(1)
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, productsCacheKey); err != nil {
		logger.Warn("failed to invalidate product cache", zap.Error(err))
	}
}
