package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const outboxKey = "mail:reset_outbox"

// ResetMail is a password reset mail waiting for another delivery attempt.
type ResetMail struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`

	// payload is the stored form of a claimed mail, used to acknowledge it.
	payload string
}

var _ Queue = (*Outbox)(nil)

// Outbox is a FIFO of undelivered reset mails kept in a Redis list. Claimed
// mails move to a processing list until acknowledged, so a crash between
// claim and acknowledgement leaves them recoverable.
type Outbox struct {
	client        redis.Cmdable
	key           string
	processingKey string
}

func NewOutbox(client redis.Cmdable) *Outbox {
	return &Outbox{
		client:        client,
		key:           outboxKey,
		processingKey: outboxKey + ":processing",
	}
}

// EnqueueResetCode queues a reset mail whose first delivery failed.
func (o *Outbox) EnqueueResetCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error {
	return o.Push(ctx, ResetMail{
		Email:     toEmail,
		Code:      code,
		ExpiresAt: expiresAt,
		Attempts:  1,
	})
}

// Push appends m to the tail of the outbox.
func (o *Outbox) Push(ctx context.Context, m ResetMail) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal reset mail: %w", err)
	}

	if err := o.client.RPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue reset mail: %w", err)
	}

	return nil
}

// Claim moves the oldest mail to the processing list and returns it. It
// returns nil when the outbox is empty.
func (o *Outbox) Claim(ctx context.Context) (*ResetMail, error) {
	payload, err := o.client.LMove(ctx, o.key, o.processingKey, "LEFT", "RIGHT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim reset mail: %w", err)
	}

	var m ResetMail
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		// drop it so a corrupt entry cannot block the queue
		o.client.LRem(ctx, o.processingKey, 1, payload)
		return nil, fmt.Errorf("unmarshal reset mail: %w", err)
	}
	m.payload = payload

	return &m, nil
}

// Ack removes a claimed mail from the processing list.
func (o *Outbox) Ack(ctx context.Context, m *ResetMail) error {
	if err := o.client.LRem(ctx, o.processingKey, 1, m.payload).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge reset mail: %w", err)
	}
	return nil
}

// Recover moves every claimed but unacknowledged mail back to the head of
// the outbox, keeping their order, and returns how many were moved.
func (o *Outbox) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := o.client.LMove(ctx, o.processingKey, o.key, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover reset mails: %w", err)
		}
		moved++
	}
}

// Len returns the number of queued mails, not counting claimed ones.
func (o *Outbox) Len(ctx context.Context) (int64, error) {
	n, err := o.client.LLen(ctx, o.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox length: %w", err)
	}
	return n, nil
}
