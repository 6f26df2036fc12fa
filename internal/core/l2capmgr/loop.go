package l2capmgr

import (
	"context"
	"sync"
)

// task 投递到事件循环的一次操作
type task struct {
	fn   func()
	done chan any
}

// loop 单 goroutine 事件循环
//
// 每次只执行一个 task；task 执行完后依次执行它排入的延迟任务，
// 全部完成才算本轮结束。task 中的 panic 被捕获并交还给调用者。
type loop struct {
	inbox    chan task
	deferred []func()

	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newLoop(size int) *loop {
	return &loop{
		inbox:   make(chan task, size),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (l *loop) run() {
	defer close(l.stopped)
	for {
		select {
		case t := <-l.inbox:
			t.done <- l.exec(t.fn)
		case <-l.quit:
			return
		}
	}
}

// exec 执行一轮，返回捕获到的 panic 值
func (l *loop) exec(fn func()) (p any) {
	defer func() {
		if r := recover(); r != nil {
			l.deferred = nil
			p = r
		}
	}()

	fn()
	for len(l.deferred) > 0 {
		next := l.deferred[0]
		l.deferred = l.deferred[1:]
		next()
	}
	return nil
}

// call 在循环中执行 fn 并等待完成
//
// fn 中的 panic 在调用者 goroutine 上重新抛出。
// ctx 只约束入队阶段，入队后一定等待执行结束。
func (l *loop) call(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan any, 1)}

	select {
	case l.inbox <- t:
	case <-l.quit:
		return ErrManagerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case p := <-t.done:
		if p != nil {
			panic(p)
		}
		return nil
	case <-l.stopped:
		return ErrManagerClosed
	}
}

// post 从其他 goroutine（定时器）异步投递 fn
func (l *loop) post(fn func()) {
	go func() {
		_ = l.call(context.Background(), fn)
	}()
}

// later 排入延迟任务，只能在循环 goroutine 中调用
func (l *loop) later(fn func()) {
	l.deferred = append(l.deferred, fn)
}

// stop 停止循环并等待退出
func (l *loop) stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	<-l.stopped
}
