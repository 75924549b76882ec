package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/notes-api/internal/logging"
)

type memQueue struct {
	items   []ResetMail
	claimed []*ResetMail
}

func (q *memQueue) Push(_ context.Context, m ResetMail) error {
	q.items = append(q.items, m)
	return nil
}

func (q *memQueue) Claim(_ context.Context) (*ResetMail, error) {
	if len(q.items) == 0 {
		return nil, nil
	}
	m := q.items[0]
	q.items = q.items[1:]
	q.claimed = append(q.claimed, &m)
	return &m, nil
}

func (q *memQueue) Ack(_ context.Context, m *ResetMail) error {
	for i, c := range q.claimed {
		if c == m {
			q.claimed = append(q.claimed[:i], q.claimed[i+1:]...)
			return nil
		}
	}
	return errors.New("mail not claimed")
}

func (q *memQueue) Recover(_ context.Context) (int, error) {
	n := len(q.claimed)
	back := make([]ResetMail, 0, n+len(q.items))
	for _, c := range q.claimed {
		back = append(back, *c)
	}
	q.items = append(back, q.items...)
	q.claimed = nil
	return n, nil
}

func (q *memQueue) Len(_ context.Context) (int64, error) {
	return int64(len(q.items)), nil
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendPasswordResetCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error {
	return m.Called(ctx, toEmail, code, expiresAt).Error(0)
}

func newTestWorker(queue Queue, sender CodeSender, now time.Time) *RetryWorker {
	w := NewRetryWorker(queue, sender, logging.Discard(), time.Minute, 3, time.Second)
	w.now = func() time.Time { return now }
	return w
}

func TestRetryWorker_DeliversQueuedMail(t *testing.T) {
	now := time.Now()
	queue := &memQueue{}
	require.NoError(t, queue.Push(context.Background(), ResetMail{
		Email: "a@x.com", Code: "123456", ExpiresAt: now.Add(10 * time.Minute), Attempts: 1,
	}))

	sender := &mockSender{}
	sender.On("SendPasswordResetCode", mock.Anything, "a@x.com", "123456", mock.Anything).Return(nil).Once()

	w := newTestWorker(queue, sender, now)
	assert.Equal(t, 1, w.Drain(context.Background()))
	assert.Empty(t, queue.items)
	assert.Empty(t, queue.claimed)
	sender.AssertExpectations(t)
}

func TestRetryWorker_RequeuesOnFailure(t *testing.T) {
	now := time.Now()
	queue := &memQueue{}
	require.NoError(t, queue.Push(context.Background(), ResetMail{
		Email: "a@x.com", Code: "123456", ExpiresAt: now.Add(10 * time.Minute), Attempts: 1,
	}))

	sender := &mockSender{}
	sender.On("SendPasswordResetCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))

	w := newTestWorker(queue, sender, now)

	assert.Equal(t, 0, w.Drain(context.Background()))
	require.Len(t, queue.items, 1)
	assert.Equal(t, 2, queue.items[0].Attempts)
	assert.Empty(t, queue.claimed)

	// third attempt reaches the limit and the mail is dropped
	assert.Equal(t, 0, w.Drain(context.Background()))
	assert.Empty(t, queue.items)
	sender.AssertNumberOfCalls(t, "SendPasswordResetCode", 2)
}

func TestRetryWorker_DropsExpiredCodes(t *testing.T) {
	now := time.Now()
	queue := &memQueue{}
	require.NoError(t, queue.Push(context.Background(), ResetMail{
		Email: "a@x.com", Code: "123456", ExpiresAt: now, Attempts: 1,
	}))

	sender := &mockSender{}
	w := newTestWorker(queue, sender, now)

	assert.Equal(t, 0, w.Drain(context.Background()))
	assert.Empty(t, queue.items)
	assert.Empty(t, queue.claimed)
	sender.AssertNotCalled(t, "SendPasswordResetCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryWorker_RequeuedMailWaitsForNextDrain(t *testing.T) {
	now := time.Now()
	queue := &memQueue{}
	for range 3 {
		require.NoError(t, queue.Push(context.Background(), ResetMail{
			Email: "a@x.com", Code: "123456", ExpiresAt: now.Add(time.Minute), Attempts: 1,
		}))
	}

	sender := &mockSender{}
	sender.On("SendPasswordResetCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))

	w := newTestWorker(queue, sender, now)
	w.Drain(context.Background())

	sender.AssertNumberOfCalls(t, "SendPasswordResetCode", 3)
	assert.Len(t, queue.items, 3)
}

func TestRetryWorker_RunRecoversClaimedMail(t *testing.T) {
	now := time.Now()
	queue := &memQueue{}
	require.NoError(t, queue.Push(context.Background(), ResetMail{
		Email: "a@x.com", Code: "123456", ExpiresAt: now.Add(10 * time.Minute), Attempts: 1,
	}))

	// a previous worker claimed the mail and died before acknowledging it
	_, err := queue.Claim(context.Background())
	require.NoError(t, err)
	require.Empty(t, queue.items)

	delivered := make(chan struct{})
	sender := &mockSender{}
	sender.On("SendPasswordResetCode", mock.Anything, "a@x.com", "123456", mock.Anything).
		Return(nil).
		Run(func(mock.Arguments) { close(delivered) }).
		Once()

	w := NewRetryWorker(queue, sender, logging.Discard(), 10*time.Millisecond, 3, time.Second)
	w.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("claimed mail was not redelivered")
	}
	cancel()
	<-done

	assert.Empty(t, queue.items)
	assert.Empty(t, queue.claimed)
}

func TestRetryWorker_RunStopsOnCancel(t *testing.T) {
	w := NewRetryWorker(&memQueue{}, &mockSender{}, logging.Discard(), 10*time.Millisecond, 3, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
