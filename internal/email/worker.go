package email

import (
	"context"
	"time"

	"github.com/redmonkez12/notes-api/internal/logging"
)

// drainBatch caps how many mails one tick pops so requeued mails wait for the next tick.
const drainBatch = 100

// Queue is the storage behind the retry worker. A claimed mail stays in the
// queue's custody until it is acknowledged; Recover hands unacknowledged
// mails out again.
type Queue interface {
	Push(ctx context.Context, m ResetMail) error
	Claim(ctx context.Context) (*ResetMail, error)
	Ack(ctx context.Context, m *ResetMail) error
	Recover(ctx context.Context) (int, error)
	Len(ctx context.Context) (int64, error)
}

// CodeSender sends a reset code mail.
type CodeSender interface {
	SendPasswordResetCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error
}

// RetryWorker periodically redelivers queued reset mails. Mails whose code
// has expired are dropped, as are mails that exhausted their attempts.
type RetryWorker struct {
	queue       Queue
	sender      CodeSender
	logger      *logging.Logger
	interval    time.Duration
	maxAttempts int
	sendTimeout time.Duration

	now func() time.Time
}

func NewRetryWorker(queue Queue, sender CodeSender, logger *logging.Logger, interval time.Duration, maxAttempts int, sendTimeout time.Duration) *RetryWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryWorker{
		queue:       queue,
		sender:      sender,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Run drains the queue every interval until ctx is cancelled.
func (w *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("mail retry worker started", "interval", w.interval.String())

	// mails claimed by a worker that died before acknowledging them
	if n, err := w.queue.Recover(ctx); err != nil {
		w.logger.Error("failed to recover claimed reset mails", "error", err)
	} else if n > 0 {
		w.logger.Info("recovered claimed reset mails", "count", n)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mail retry worker stopped")
			return
		case <-ticker.C:
			if delivered := w.Drain(ctx); delivered > 0 {
				w.logger.Info("redelivered reset mails", "count", delivered)
			}
		}
	}
}

// Drain makes one delivery attempt for up to drainBatch queued mails and
// returns how many were delivered. Failed mails go back to the queue.
func (w *RetryWorker) Drain(ctx context.Context) int {
	batch := make([]*ResetMail, 0, drainBatch)
	for len(batch) < drainBatch {
		m, err := w.queue.Claim(ctx)
		if err != nil {
			w.logger.Error("failed to read mail outbox", "error", err)
			break
		}
		if m == nil {
			break
		}
		batch = append(batch, m)
	}

	delivered := 0
	for _, m := range batch {
		if w.attempt(ctx, m) {
			delivered++
		}
		if err := w.queue.Ack(context.WithoutCancel(ctx), m); err != nil {
			w.logger.Error("failed to acknowledge reset mail", "error", err)
		}
	}

	if pending, err := w.queue.Len(ctx); err == nil && pending > 0 {
		w.logger.Debug("reset mails pending", "count", pending)
	}
	return delivered
}

// attempt sends m once. A failed mail with attempts left is pushed back
// before m is acknowledged, so a crash in between duplicates it rather
// than losing it.
func (w *RetryWorker) attempt(ctx context.Context, m *ResetMail) bool {
	if !w.now().Before(m.ExpiresAt) {
		w.logger.Info("dropping reset mail for expired code", "attempts", m.Attempts)
		return false
	}

	sendCtx, cancel := context.WithTimeout(logging.WithLogger(ctx, w.logger), w.sendTimeout)
	err := w.sender.SendPasswordResetCode(sendCtx, m.Email, m.Code, m.ExpiresAt)
	cancel()
	if err == nil {
		return true
	}

	m.Attempts++
	if m.Attempts >= w.maxAttempts {
		w.logger.Error("giving up on reset mail", "attempts", m.Attempts, "error", err)
		return false
	}

	w.logger.Warn("reset mail retry failed", "attempts", m.Attempts, "error", err)
	retry := *m
	retry.payload = ""
	if perr := w.queue.Push(context.WithoutCancel(ctx), retry); perr != nil {
		w.logger.Error("failed to requeue reset mail", "error", perr)
	}
	return false
}
