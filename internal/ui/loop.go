package ui

import (
	"sync"

	"go.uber.org/zap"
)

// Loop is the UI context: a single goroutine that runs dispatched work in
// submission order. Display state is only written from here.
type Loop struct {
	tasks     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewLoop(buffer int, logger *zap.Logger) *Loop {
	l := &Loop{
		tasks:  make(chan func(), buffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.quit:
			return
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("UI task panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

// Dispatch queues fn for the UI goroutine. It reports false once the loop
// has been closed, in which case fn never runs.
func (l *Loop) Dispatch(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Close stops the loop and waits for the running task, if any. Queued
// tasks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
}
