package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-store/internal/dto"
	"campus-store/internal/model"
)

type step struct {
	status *dto.PaymentStatusResponse
	err    error
}

// scripted devuelve los pasos en orden y repite el último.
type scripted struct {
	mu       sync.Mutex
	steps    []step
	calls    int
	inFlight int32
	maxIn    int32
	delay    time.Duration
}

func (s *scripted) FetchStatus(ctx context.Context, _ string) (*dto.PaymentStatusResponse, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		old := atomic.LoadInt32(&s.maxIn)
		if n <= old || atomic.CompareAndSwapInt32(&s.maxIn, old, n) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i].status, s.steps[i].err
}

var (
	pending = &dto.PaymentStatusResponse{PaymentStatus: model.PaymentPending}
	paid    = &dto.PaymentStatusResponse{IsPaid: true, PaymentStatus: model.PaymentSuccessful}
	failed  = &dto.PaymentStatusResponse{PaymentStatus: model.PaymentFailed}
)

func TestWait_PaidAfterPending(t *testing.T) {
	s := &scripted{steps: []step{{status: pending}, {status: pending}, {status: paid}}}
	p := New(s, 5*time.Millisecond, time.Second)

	res, err := p.Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, Paid, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, res.Status.IsPaid)
}

func TestWait_ImmediateFirstPoll(t *testing.T) {
	s := &scripted{steps: []step{{status: paid}}}
	p := New(s, time.Hour, time.Second)

	start := time.Now()
	res, err := p.Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, Paid, res.Outcome)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWait_Failed(t *testing.T) {
	s := &scripted{steps: []step{{status: pending}, {status: failed}}}
	res, err := New(s, 5*time.Millisecond, time.Second).Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, Failed, res.Outcome)
}

func TestWait_TimesOut(t *testing.T) {
	s := &scripted{steps: []step{{status: pending}}}
	p := New(s, 10*time.Millisecond, 60*time.Millisecond)

	res, err := p.Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, TimedOut, res.Outcome)
	assert.GreaterOrEqual(t, res.Attempts, 2)
}

func TestWait_TimeoutCutsSlowRequest(t *testing.T) {
	s := &scripted{steps: []step{{status: pending}}, delay: time.Hour}
	p := New(s, 10*time.Millisecond, 50*time.Millisecond)

	start := time.Now()
	res, err := p.Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, TimedOut, res.Outcome)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWait_SingleInFlight(t *testing.T) {
	s := &scripted{steps: []step{{status: pending}}, delay: 15 * time.Millisecond}
	p := New(s, time.Millisecond, 100*time.Millisecond)

	_, err := p.Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&s.maxIn))
}

func TestWait_TransientErrorsContinue(t *testing.T) {
	s := &scripted{steps: []step{{err: errors.New("connection refused")}, {err: errors.New("unexpected status 502")}, {status: paid}}}
	res, err := New(s, 5*time.Millisecond, time.Second).Wait(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, Paid, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
}

func TestWait_TerminalErrors(t *testing.T) {
	for _, terminal := range []error{ErrOrderNotFound, ErrForbidden, ErrUnauthorized} {
		s := &scripted{steps: []step{{err: terminal}}}
		res, err := New(s, 5*time.Millisecond, time.Second).Wait(context.Background(), "o1")
		assert.ErrorIs(t, err, terminal)
		assert.Equal(t, 1, res.Attempts)
	}
}

func TestWait_ParentCancel(t *testing.T) {
	s := &scripted{steps: []step{{status: pending}}}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := New(s, 5*time.Millisecond, time.Minute).Wait(ctx, "o1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	p := New(&scripted{}, 0, 0)
	assert.Equal(t, DefaultInterval, p.Interval)
	assert.Equal(t, DefaultTimeout, p.Timeout)
}

func TestHTTPStatusClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/orders/o1/status":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"isPaid":true,"isDelivered":false,"paymentStatus":"Successful"}`))
		case "/orders/theirs/status":
			w.WriteHeader(http.StatusForbidden)
		case "/orders/flaky/status":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPStatusClient(srv.URL+"/", "tok")

	st, err := c.FetchStatus(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, &dto.PaymentStatusResponse{IsPaid: true, PaymentStatus: "Successful"}, st)

	_, err = c.FetchStatus(context.Background(), "theirs")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.FetchStatus(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = c.FetchStatus(context.Background(), "flaky")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrderNotFound)

	_, err = NewHTTPStatusClient(srv.URL, "").FetchStatus(context.Background(), "o1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
