package mailer

import (
	"sync"

	"go.uber.org/zap"
)

// AsyncSender decouples email delivery from the request path. Send returns
// immediately; delivery failures are logged, never surfaced to the caller.
type AsyncSender struct {
	inner  Mailer
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewAsyncSender(inner Mailer, logger *zap.Logger) *AsyncSender {
	return &AsyncSender{
		inner:  inner,
		logger: logger.Named("AsyncSender"),
	}
}

func (a *AsyncSender) Send(msg Message) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.inner.Send(msg); err != nil {
			a.logger.Error("Failed to deliver email",
				zap.String("toEmail", msg.ToEmail),
				zap.String("subject", msg.Subject),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until all in-flight deliveries finish. Used during shutdown.
func (a *AsyncSender) Wait() {
	a.wg.Wait()
}
