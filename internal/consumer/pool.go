package consumer

import (
	"context"
	"sync"

	"github.com/eduka/notification-service/internal/email"
	"github.com/eduka/notification-service/internal/queue"
	"go.uber.org/zap"
)

// Pool runs one dispatcher per bound queue. Queues are processed concurrently
// with each other; within a queue messages are handled one at a time.
type Pool struct {
	dispatchers []*Dispatcher
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewPool(client *queue.Client, sender email.Sender, logger *zap.Logger) *Pool {
	p := &Pool{logger: logger}
	for _, b := range queue.Bindings() {
		p.dispatchers = append(p.dispatchers, New(
			b, client, sender,
			logger.With(zap.String("queue", b.Queue)),
		))
	}
	return p
}

// Start launches all dispatchers. Cancelling ctx stops them after the message
// in flight, if any, finishes.
func (p *Pool) Start(ctx context.Context) {
	for _, d := range p.dispatchers {
		p.wg.Add(1)
		go func(d *Dispatcher) {
			defer p.wg.Done()
			if err := d.Run(ctx); err != nil {
				p.logger.Error("dispatcher exited", zap.Error(err))
			}
		}(d)
	}
}

// Wait blocks until every dispatcher has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
