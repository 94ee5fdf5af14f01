package retry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestExecuteTransientThenSuccess(t *testing.T) {
	t.Parallel()

	rec := &recordingSleeper{}
	policy := Default().WithSleeper(rec.sleep)

	calls := 0
	value, attempts, err := Execute(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", NewError(KindTransient, errors.New("connection reset"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestExecuteAuthFailsImmediately(t *testing.T) {
	t.Parallel()

	rec := &recordingSleeper{}
	policy := Default().WithSleeper(rec.sleep)

	calls := 0
	_, attempts, err := Execute(context.Background(), policy, func(context.Context) (int, error) {
		calls++
		return 0, NewError(KindAuth, errors.New("invalid api key"))
	})

	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestExecuteExhausted(t *testing.T) {
	t.Parallel()

	rec := &recordingSleeper{}
	policy := Default().WithSleeper(rec.sleep)
	cause := errors.New("boom")

	_, attempts, err := Execute(context.Background(), policy, func(context.Context) (int, error) {
		return 0, cause
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, rec.waits, 2)
}

func TestExecuteRateLimitedWaits(t *testing.T) {
	t.Parallel()

	rec := &recordingSleeper{}
	policy := Default().WithSleeper(rec.sleep)

	calls := 0
	_, _, err := Execute(context.Background(), policy, func(context.Context) (int, error) {
		calls++
		switch calls {
		case 1:
			return 0, RateLimited(errors.New("slow down"), 7*time.Second)
		case 2:
			return 0, RateLimited(errors.New("slow down"), 0)
		}
		return 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second, 2 * time.Second}, rec.waits)
}

func TestGitPolicyDoesNotRetryUnknown(t *testing.T) {
	t.Parallel()

	rec := &recordingSleeper{}
	policy := Git().WithSleeper(rec.sleep)

	attempts, err := Do(context.Background(), policy, func(context.Context) error {
		return errors.New("nothing to commit")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	calls := 0
	attempts, err = Do(context.Background(), policy, func(context.Context) error {
		calls++
		return NewError(KindTransient, errors.New("remote hung up"))
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := Default().WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, attempts, err := Execute(ctx, policy, func(context.Context) (int, error) {
		return 0, NewError(KindTransient, errors.New("timeout"))
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDelay(t *testing.T) {
	t.Parallel()

	p := &Policy{BaseDelay: 100 * time.Millisecond, Backoff: BackoffExponential, Factor: 2, MaxDelay: 500 * time.Millisecond}
	tests := []struct {
		kind    Kind
		attempt int
		want    time.Duration
	}{
		{KindTransient, 0, 100 * time.Millisecond},
		{KindTransient, 1, 200 * time.Millisecond},
		{KindTransient, 2, 400 * time.Millisecond},
		{KindTransient, 3, 500 * time.Millisecond},
		{KindUnknown, 1, 200 * time.Millisecond},
		{KindRateLimited, 0, 100 * time.Millisecond},
		{KindRateLimited, 2, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.kind, tt.attempt, 0); got != tt.want {
			t.Errorf("Delay(%s, %d) = %v, want %v", tt.kind, tt.attempt, got, tt.want)
		}
	}

	fixed := &Policy{BaseDelay: 2 * time.Second, Backoff: BackoffFixed}
	assert.Equal(t, 2*time.Second, fixed.Delay(KindTransient, 5, 0))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindTransient, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindUnknown, Classify(errors.New("plain")))
	assert.Equal(t, KindAuth, Classify(&ExhaustedError{Attempts: 1, Last: NewError(KindAuth, errors.New("x"))}))

	assert.Equal(t, KindRateLimited, KindForStatus(http.StatusTooManyRequests))
	assert.Equal(t, KindAuth, KindForStatus(http.StatusForbidden))
	assert.Equal(t, KindTransient, KindForStatus(http.StatusBadGateway))
	assert.Equal(t, KindTransient, KindForStatus(http.StatusRequestTimeout))
	assert.Equal(t, KindUnknown, KindForStatus(http.StatusNotFound))
}

func TestStatusErrorReadsRetryAfter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	classified := StatusError(resp, "quota")
	assert.Equal(t, KindRateLimited, classified.Kind)
	assert.Equal(t, 12*time.Second, classified.RetryAfter)
}

func TestParseRetryAfterDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	header := now.Add(30 * time.Second).Format(http.TimeFormat)
	assert.Equal(t, 30*time.Second, ParseRetryAfter(header, now))
	assert.Zero(t, ParseRetryAfter("garbage", now))
	assert.Zero(t, ParseRetryAfter("-5", now))
}
