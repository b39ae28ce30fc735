package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/deppfellow/portfolio-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDispatcher struct {
	mu       sync.Mutex
	alerts   []email.ContactAlert
	err      error
	block    chan struct{}
	panicMsg string
	deadline bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, alert email.ContactAlert) error {
	if f.block != nil {
		<-f.block
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	_, f.deadline = ctx.Deadline()
	return f.err
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func newTestNotifier(d Dispatcher) (*Notifier, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	return New(d, "fake", time.Second, &logger), &buf
}

func submission(id int64) model.Submission {
	mobile := "555-0100"
	return model.Submission{ID: id, Name: "Ada", Email: "ada@example.com", Mobile: &mobile, Message: "hi", Timestamp: time.Unix(100, 0)}
}

func TestSubmissionReceived_Delivers(t *testing.T) {
	d := &fakeDispatcher{}
	n, logs := newTestNotifier(d)

	n.SubmissionReceived(submission(1))
	require.NoError(t, n.Close(context.Background()))

	require.Equal(t, 1, d.count())
	assert.Equal(t, "Ada", d.alerts[0].Name)
	assert.Equal(t, "555-0100", d.alerts[0].Mobile)
	assert.Equal(t, time.Unix(100, 0), d.alerts[0].ReceivedAt)
	assert.True(t, d.deadline, "dispatch runs under a timeout")
	assert.Contains(t, logs.String(), "notification sent")
}

func TestSubmissionReceived_ConcurrentCallers(t *testing.T) {
	d := &fakeDispatcher{}
	n, _ := newTestNotifier(d)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.SubmissionReceived(submission(int64(i)))
		}()
	}
	wg.Wait()
	require.NoError(t, n.Close(context.Background()))

	assert.Equal(t, 10, d.count())
}

func TestSubmissionReceived_DoesNotBlockCaller(t *testing.T) {
	d := &fakeDispatcher{block: make(chan struct{})}
	n, _ := newTestNotifier(d)

	returned := make(chan struct{})
	go func() {
		n.SubmissionReceived(submission(1))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("SubmissionReceived blocked on the dispatcher")
	}

	close(d.block)
	require.NoError(t, n.Close(context.Background()))
}

func TestSubmissionReceived_FailureIsLogged(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("smtp: 535 bad credentials")}
	n, logs := newTestNotifier(d)

	n.SubmissionReceived(submission(7))
	require.NoError(t, n.Close(context.Background()))

	assert.Contains(t, logs.String(), "notification failed")
	assert.Contains(t, logs.String(), "535 bad credentials")
	assert.Contains(t, logs.String(), `"submission_id":7`)
}

func TestSubmissionReceived_PanicIsRecovered(t *testing.T) {
	n, logs := newTestNotifier(&fakeDispatcher{panicMsg: "nil transport"})

	n.SubmissionReceived(submission(1))
	require.NoError(t, n.Close(context.Background()))

	assert.Contains(t, logs.String(), "notification panicked")
}

func TestSubmissionReceived_NilDispatcher(t *testing.T) {
	n, logs := newTestNotifier(nil)

	n.SubmissionReceived(submission(1))
	require.NoError(t, n.Close(context.Background()))

	assert.Contains(t, logs.String(), "email alerts disabled")
}

func TestSubmissionReceived_AfterClose(t *testing.T) {
	d := &fakeDispatcher{}
	n, logs := newTestNotifier(d)
	require.NoError(t, n.Close(context.Background()))

	n.SubmissionReceived(submission(1))

	assert.Equal(t, 0, d.count())
	assert.Contains(t, logs.String(), "notifier closed")
}

func TestClose_HonoursContext(t *testing.T) {
	d := &fakeDispatcher{block: make(chan struct{})}
	n, _ := newTestNotifier(d)
	n.SubmissionReceived(submission(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Close(ctx), context.DeadlineExceeded)

	close(d.block)
	require.NoError(t, n.Close(context.Background()))
}
