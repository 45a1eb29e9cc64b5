package expiry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockChecker はSessionCheckerのモック。
type mockChecker struct {
	calls   atomic.Int32
	expired bool
	err     error
	lastNow time.Time
}

func (m *mockChecker) CheckSessionExpiry(_ context.Context, now time.Time) (bool, error) {
	m.calls.Add(1)
	m.lastNow = now
	return m.expired, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestJob_RunOnce_PassesCurrentTime(t *testing.T) {
	var buf bytes.Buffer
	checker := &mockChecker{}
	job := NewJob(checker, newTestLogger(&buf))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if !checker.lastNow.Equal(fixed) {
		t.Errorf("now = %v, want %v", checker.lastNow, fixed)
	}
	if buf.Len() != 0 {
		t.Errorf("期限内の場合はログを出力しない: %s", buf.String())
	}
}

func TestJob_RunOnce_LogsExpiry(t *testing.T) {
	var buf bytes.Buffer
	job := NewJob(&mockChecker{expired: true}, newTestLogger(&buf))

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if !strings.Contains(buf.String(), "期限切れのセッションをログアウトしました") {
		t.Errorf("ログに期限切れの記録がない: %s", buf.String())
	}
}

func TestJob_RunOnce_ReturnsError(t *testing.T) {
	want := errors.New("storage down")
	job := NewJob(&mockChecker{err: want}, nil)

	if err := job.RunOnce(context.Background()); !errors.Is(err, want) {
		t.Errorf("RunOnce() error = %v, want %v", err, want)
	}
}

func TestJob_Start_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	checker := &mockChecker{}
	job := NewJob(checker, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for checker.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("ティッカーでRunOnceが実行されなかった")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start がキャンセル後に終了しなかった")
	}
}
