package mailer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingMailer) Send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestAsyncSender_DeliversInBackground(t *testing.T) {
	t.Parallel()

	inner := &recordingMailer{}
	s := NewAsyncSender(inner, zap.NewNop())

	require.NoError(t, s.Send(Message{ToEmail: "a@x.com", Subject: "hi"}))
	s.Wait()

	assert.Len(t, inner.sent, 1)
	assert.Equal(t, "a@x.com", inner.sent[0].ToEmail)
}

func TestAsyncSender_SwallowsDeliveryError(t *testing.T) {
	t.Parallel()

	inner := &recordingMailer{err: errors.New("smtp down")}
	s := NewAsyncSender(inner, zap.NewNop())

	// The caller's success path must not depend on delivery.
	require.NoError(t, s.Send(Message{ToEmail: "a@x.com"}))
	s.Wait()
	assert.Len(t, inner.sent, 1)
}
