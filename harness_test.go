package corebridge

import (
	"sync"
	"time"
)

// fakeLoop is a recording Loop implementation for adapter tests. Registration
// calls append to ops so tests can assert the exact sequence issued.
type fakeLoop struct {
	mu      sync.Mutex
	ops     []string
	readers map[int]func()
	writers map[int]func()
	timers  []*fakeTimer

	addReaderErr error
	addWriterErr error
	callLaterErr error
	submitErr    error
	submitted    []func()
	runSubmitted bool
}

type fakeTimer struct {
	fn        func()
	delay     time.Duration
	cancelled bool
}

func (t *fakeTimer) Cancel() { t.cancelled = true }

func newFakeLoop() *fakeLoop {
	return &fakeLoop{
		readers:      make(map[int]func()),
		writers:      make(map[int]func()),
		runSubmitted: true,
	}
}

func (l *fakeLoop) record(op string) {
	l.ops = append(l.ops, op)
}

func (l *fakeLoop) AddReader(fd int, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.addReaderErr != nil {
		return l.addReaderErr
	}
	l.record("add_reader(" + itoa(fd) + ")")
	l.readers[fd] = fn
	return nil
}

func (l *fakeLoop) RemoveReader(fd int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("remove_reader(" + itoa(fd) + ")")
	_, ok := l.readers[fd]
	delete(l.readers, fd)
	return ok
}

func (l *fakeLoop) AddWriter(fd int, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.addWriterErr != nil {
		return l.addWriterErr
	}
	l.record("add_writer(" + itoa(fd) + ")")
	l.writers[fd] = fn
	return nil
}

func (l *fakeLoop) RemoveWriter(fd int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("remove_writer(" + itoa(fd) + ")")
	_, ok := l.writers[fd]
	delete(l.writers, fd)
	return ok
}

func (l *fakeLoop) CallLater(delay time.Duration, fn func()) (TimerHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.callLaterErr != nil {
		return nil, l.callLaterErr
	}
	t := &fakeTimer{fn: fn, delay: delay}
	l.timers = append(l.timers, t)
	return t, nil
}

func (l *fakeLoop) Submit(fn func()) error {
	l.mu.Lock()
	if l.submitErr != nil {
		l.mu.Unlock()
		return l.submitErr
	}
	run := l.runSubmitted
	if !run {
		l.submitted = append(l.submitted, fn)
	}
	l.mu.Unlock()
	if run {
		fn()
	}
	return nil
}

// fireTimers invokes every armed, uncancelled timer once, simulating the
// loop's clock elapsing past all deadlines.
func (l *fakeLoop) fireTimers() {
	l.mu.Lock()
	timers := l.timers
	l.timers = nil
	l.mu.Unlock()
	for _, t := range timers {
		if !t.cancelled {
			t.fn()
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// fakeOp is a scriptable PendingOperation. Tests drive completion by calling
// fireOK or fireErr, simulating the native engine settling the operation.
type fakeOp struct {
	mu         sync.Mutex
	onOK       OpCallback
	onErr      OpErrback
	setCount   int
	clearCount int
}

func (o *fakeOp) SetCallbacks(onOK OpCallback, onErr OpErrback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onOK = onOK
	o.onErr = onErr
	o.setCount++
}

func (o *fakeOp) ClearCallbacks() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onOK = nil
	o.onErr = nil
	o.clearCount++
}

func (o *fakeOp) fireOK(value any) {
	o.mu.Lock()
	fn := o.onOK
	o.mu.Unlock()
	if fn != nil {
		fn(value)
	}
}

func (o *fakeOp) fireErr(code ErrorCode, payload any, context string) {
	o.mu.Lock()
	fn := o.onErr
	o.mu.Unlock()
	if fn != nil {
		fn(code, payload, context)
	}
}
