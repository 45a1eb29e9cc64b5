// Package dispatch はストアへの変更を1つずつ順番に実行するリアクションループを提供する。
// ループに投入された処理は投入順（FIFO）に、互いに並行せず実行される。
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrStopped はループ停止後に処理を投入した場合のエラー。
	ErrStopped = errors.New("dispatch loop stopped")
	// ErrQueueFull はPostでキューが満杯だった場合のエラー。
	ErrQueueFull = errors.New("dispatch queue full")
)

// DefaultQueueSize はキューサイズ未指定時の既定値。
const DefaultQueueSize = 256

const (
	statePending int32 = iota
	stateRunning
	stateAbandoned
)

type reaction struct {
	fn     func()
	result chan error
	// stateはDoで投入されたリアクションのみが持つ。nilはPost。
	state *atomic.Int32
}

// claim は実行権を取得する。待機者が既に離脱している場合はfalseを返す。
func (r reaction) claim() bool {
	return r.state == nil || r.state.CompareAndSwap(statePending, stateRunning)
}

// abandon は未実行のリアクションを取り消す。既に実行が始まっている場合はfalseを返す。
func (r reaction) abandon() bool {
	return r.state.CompareAndSwap(statePending, stateAbandoned)
}

// Loop はリアクションを単一のgoroutineで順に実行する。
// リアクション内からDoを呼び出してはならない（自分自身の完了を待つためデッドロックする）。
type Loop struct {
	queue  chan reaction
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewLoop は新しいLoopを生成する。sizeが0以下の場合はDefaultQueueSizeを使う。
func NewLoop(logger *slog.Logger, size int) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Loop{
		queue:  make(chan reaction, size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run はctxがキャンセルされるまでリアクションを処理する。
// 停止時、キューに残ったリアクションの待機者にはErrStoppedが返る。
func (l *Loop) Run(ctx context.Context) {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("dispatch loop stopped")
			return
		case r := <-l.queue:
			if !r.claim() {
				continue
			}
			err := l.execute(r.fn)
			if r.result != nil {
				r.result <- err
			}
		}
	}
}

func (l *Loop) stop() {
	l.once.Do(func() { close(l.done) })
}

// Done はループ停止時にクローズされるチャネルを返す。
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) execute(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("reaction panic recovered", slog.Any("panic", r))
			err = fmt.Errorf("reaction panic: %v", r)
		}
	}()
	fn()
	return nil
}

// Do はリアクションを投入し、その完了を待つ。
// ループ停止後はErrStopped、実行開始前にctxがキャンセルされた場合はctx.Err()を返す。
// エラーを返した場合fnは実行されていない。実行開始後はctxのキャンセルに関わらず完了を待つ。
func (l *Loop) Do(ctx context.Context, fn func()) error {
	r := reaction{fn: fn, result: make(chan error, 1), state: new(atomic.Int32)}

	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.queue <- r:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-r.result:
		return err
	case <-l.done:
		return l.afterStop(r)
	case <-ctx.Done():
		if r.abandon() {
			return ctx.Err()
		}
	}

	// 実行中のため結果を待つ
	select {
	case err := <-r.result:
		return err
	case <-l.done:
		return l.afterStop(r)
	}
}

// afterStop はループ停止後の待機者への結果を決める。
func (l *Loop) afterStop(r reaction) error {
	if r.abandon() {
		return ErrStopped
	}
	// 停止直前に実行が始まっていれば、Runは結果を送ってから戻る
	return <-r.result
}

// Post はリアクションを投入し、完了を待たずに戻る。
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.queue <- reaction{fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}
