package client

import "sync"

// loop runs the tasks posted to one client, in order, on a single
// goroutine. All connection state is touched only from loop tasks.
type loop struct {
	mu      sync.Mutex
	tasks   []func()
	stopped bool

	wake chan struct{}
	done chan struct{}
}

func newLoop() *loop {
	return &loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// post queues fn. It reports false once the loop has been stopped.
func (l *loop) post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	l.signal()

	return true
}

// stop refuses further tasks. The loop exits after running the ones
// already queued.
func (l *loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	l.signal()
}

func (l *loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		stopped := l.stopped
		l.mu.Unlock()

		if len(tasks) == 0 {
			if stopped {
				return
			}
			<-l.wake
			continue
		}

		for i, fn := range tasks {
			tasks[i] = nil
			fn()
		}
	}
}
