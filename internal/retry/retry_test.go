package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr struct{ retryable bool }

func (e statusErr) Error() string      { return "status" }
func (e statusErr) IsRetryable() bool { return e.retryable }

func noWait(context.Context, time.Duration) error { return nil }

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond}
	calls := 0
	err := p.do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, noWait)
	if err != nil || calls != 3 {
		t.Errorf("Do() = %v after %d calls, want nil after 3", err, calls)
	}
}

func TestDoStops(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"exhausted", errors.New("down"), 3},
		{"permanent", Permanent(errors.New("bad request")), 1},
		{"not retryable status", statusErr{retryable: false}, 1},
		{"retryable status", statusErr{retryable: true}, 3},
		{"canceled", context.Canceled, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
			calls := 0
			err := p.do(context.Background(), func(context.Context) error {
				calls++
				return tt.err
			}, noWait)
			if !errors.Is(err, tt.err) && !errors.Is(err, errors.Unwrap(tt.err)) {
				t.Errorf("Do() error = %v, want wrapping %v", err, tt.err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	if err == nil || calls != 1 {
		t.Errorf("Do() = %v after %d calls, want error after 1", err, calls)
	}
}

func TestDelay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := p.Delay(i + 2); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+2, got, w)
		}
	}

	p.Jitter = 0.5
	for i := 0; i < 100; i++ {
		d := p.Delay(2)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered Delay(2) = %v outside [50ms, 150ms]", d)
		}
	}
}
