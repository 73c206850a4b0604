package corebridge

import (
	"bytes"
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// maxPollTimeout caps the poll wait so the loop periodically re-checks its
// state even with no timers armed.
const maxPollTimeout = 10 * time.Second

// loopTimer is a one-shot timer armed via [SelectorLoop.CallLater].
// Cancellation is lazy: Cancel only flips the flag, and the loop discards
// cancelled timers when they surface at the top of the heap.
type loopTimer struct {
	when      time.Time
	fn        func()
	seq       uint64
	index     int
	cancelled atomic.Bool
}

// Cancel implements [TimerHandle].
func (t *loopTimer) Cancel() {
	t.cancelled.Store(true)
}

// timerHeap is a min-heap of timers ordered by (when, seq). Loop goroutine
// only.
type timerHeap []*loopTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*loopTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// fdWatch holds the read and write callbacks registered for a single fd.
type fdWatch struct {
	onReadable func()
	onWritable func()
}

func (w *fdWatch) mask() IOEvents {
	var m IOEvents
	if w.onReadable != nil {
		m |= EventRead
	}
	if w.onWritable != nil {
		m |= EventWrite
	}
	return m
}

// SelectorLoop is the portable fallback event loop used when no compatible
// host loop is available. It multiplexes fd readiness callbacks, one-shot
// timers, and submitted tasks on a single dedicated goroutine.
//
// A SelectorLoop must be started with [SelectorLoop.Run] (typically on its
// own goroutine) and stopped with [SelectorLoop.Shutdown]. All [Loop] methods
// are safe for concurrent use; registered callbacks and submitted tasks
// always execute on the loop goroutine.
type SelectorLoop struct {
	poller fastPoller
	state  *loopState
	tasks  *taskQueue
	logger *logiface.Logger[logiface.Event]

	timers   timerHeap
	timerSeq uint64

	watches map[int]*fdWatch
	watchMu sync.RWMutex

	wakeReadFd  int
	wakeWriteFd int
	wakePending atomic.Uint32

	taskBudget      int
	inflight        atomic.Int64
	loopGoroutineID atomic.Uint64
	loopDone        chan struct{}
	stopOnce        sync.Once
	fdsClosed       atomic.Bool
}

// NewSelectorLoop constructs a SelectorLoop. The loop does not process
// anything until [SelectorLoop.Run] is called.
func NewSelectorLoop(opts ...Option) (*SelectorLoop, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &SelectorLoop{
		state:       newLoopState(),
		tasks:       newTaskQueue(),
		logger:      cfg.logger,
		watches:     make(map[int]*fdWatch),
		wakeReadFd:  -1,
		wakeWriteFd: -1,
		taskBudget:  cfg.taskBudget,
		loopDone:    make(chan struct{}),
	}

	readFd, writeFd, err := createWakeFd()
	if err != nil {
		return nil, fmt.Errorf("corebridge: create wake fd: %w", err)
	}
	l.wakeReadFd = readFd
	l.wakeWriteFd = writeFd

	if err := l.poller.Init(); err != nil {
		closeWakeFd(readFd, writeFd)
		return nil, fmt.Errorf("corebridge: init poller: %w", err)
	}

	if err := l.poller.RegisterFD(readFd, EventRead, func(IOEvents) {
		drainWakeFd(readFd)
		l.wakePending.Store(0)
	}); err != nil {
		_ = l.poller.Close()
		closeWakeFd(readFd, writeFd)
		return nil, fmt.Errorf("corebridge: register wake fd: %w", err)
	}

	return l, nil
}

// AddReader implements [Loop]. A subsequent AddReader on the same fd replaces
// the previous callback without churning the poller registration.
func (l *SelectorLoop) AddReader(fd int, fn func()) error {
	return l.addWatch(fd, fn, true)
}

// AddWriter implements [Loop].
func (l *SelectorLoop) AddWriter(fd int, fn func()) error {
	return l.addWatch(fd, fn, false)
}

func (l *SelectorLoop) addWatch(fd int, fn func(), read bool) error {
	if fn == nil {
		return ErrNilCallback
	}
	if l.state.Load() >= StateTerminating {
		return ErrLoopTerminated
	}

	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	w, ok := l.watches[fd]
	if !ok {
		w = &fdWatch{}
		if read {
			w.onReadable = fn
		} else {
			w.onWritable = fn
		}
		if err := l.poller.RegisterFD(fd, w.mask(), func(events IOEvents) {
			l.dispatchFD(fd, events)
		}); err != nil {
			return err
		}
		l.watches[fd] = w
		return nil
	}

	prev := w.mask()
	if read {
		w.onReadable = fn
	} else {
		w.onWritable = fn
	}
	if w.mask() != prev {
		if err := l.poller.ModifyFD(fd, w.mask()); err != nil {
			if read {
				w.onReadable = nil
			} else {
				w.onWritable = nil
			}
			return err
		}
	}
	return nil
}

// RemoveReader implements [Loop].
func (l *SelectorLoop) RemoveReader(fd int) bool {
	return l.removeWatch(fd, true)
}

// RemoveWriter implements [Loop].
func (l *SelectorLoop) RemoveWriter(fd int) bool {
	return l.removeWatch(fd, false)
}

func (l *SelectorLoop) removeWatch(fd int, read bool) bool {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	w, ok := l.watches[fd]
	if !ok {
		return false
	}
	if read {
		if w.onReadable == nil {
			return false
		}
		w.onReadable = nil
	} else {
		if w.onWritable == nil {
			return false
		}
		w.onWritable = nil
	}

	if w.mask() == 0 {
		delete(l.watches, fd)
		_ = l.poller.UnregisterFD(fd)
	} else {
		_ = l.poller.ModifyFD(fd, w.mask())
	}
	return true
}

// dispatchFD runs on the loop goroutine, from inside PollIO. Error and hangup
// conditions are delivered to both callbacks so the owner can observe the fd
// and tear it down.
func (l *SelectorLoop) dispatchFD(fd int, events IOEvents) {
	l.watchMu.RLock()
	w, ok := l.watches[fd]
	var onReadable, onWritable func()
	if ok {
		onReadable = w.onReadable
		onWritable = w.onWritable
	}
	l.watchMu.RUnlock()
	if !ok {
		return
	}

	if events&(EventRead|EventError|EventHangup) != 0 && onReadable != nil {
		l.safeExecute(onReadable)
	}
	if events&(EventWrite|EventError|EventHangup) != 0 && onWritable != nil {
		l.safeExecute(onWritable)
	}
}

// CallLater implements [Loop]. A negative delay is clamped to zero. The timer
// is armed via the task queue so the heap stays loop-goroutine-only.
func (l *SelectorLoop) CallLater(delay time.Duration, fn func()) (TimerHandle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	if delay < 0 {
		delay = 0
	}

	t := &loopTimer{
		when: time.Now().Add(delay),
		fn:   fn,
		seq:  atomic.AddUint64(&l.timerSeq, 1),
	}
	if err := l.Submit(func() {
		heap.Push(&l.timers, t)
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// Submit implements [Loop]. Tasks submitted before shutdown completes are
// guaranteed to run; tasks submitted after return [ErrLoopTerminated].
func (l *SelectorLoop) Submit(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}

	l.inflight.Add(1)
	defer l.inflight.Add(-1)

	if l.state.Load() >= StateTerminating {
		return ErrLoopTerminated
	}

	l.tasks.Push(fn)

	if l.state.Load() == StateSleeping && l.wakePending.CompareAndSwap(0, 1) {
		if err := signalWakeFd(l.wakeWriteFd); err != nil {
			l.wakePending.Store(0)
		}
	}
	return nil
}

// IsLoopThread reports whether the caller is running on the loop goroutine.
func (l *SelectorLoop) IsLoopThread() bool {
	id := l.loopGoroutineID.Load()
	return id != 0 && id == getGoroutineID()
}

// Run executes the loop on the calling goroutine until [SelectorLoop.Shutdown]
// is called or ctx is cancelled. It returns [ErrLoopAlreadyRunning] if the
// loop is running elsewhere, [ErrReentrantRun] when called from the loop
// goroutine itself, and [ErrLoopTerminated] after shutdown.
func (l *SelectorLoop) Run(ctx context.Context) error {
	if l.IsLoopThread() {
		return ErrReentrantRun
	}

	if !l.state.TryTransition(StateAwake, StateRunning) {
		if l.state.Load() >= StateTerminating {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGoroutineID.Store(getGoroutineID())
	defer close(l.loopDone)

	// Wake the poll when ctx dies so cancellation is observed promptly.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = signalWakeFd(l.wakeWriteFd)
		case <-watcherDone:
		}
	}()

	for {
		if ctx.Err() != nil {
			l.state.TryTransition(StateRunning, StateTerminating)
			l.state.TryTransition(StateSleeping, StateTerminating)
		}

		if l.state.Load() >= StateTerminating {
			l.finalize()
			return nil
		}

		l.tick()
	}
}

// tick runs one iteration: due timers, a bounded batch of tasks, then poll.
func (l *SelectorLoop) tick() {
	l.runTimers()
	l.processTasks()
	l.poll()
}

// runTimers fires all timers due as of now, discarding cancelled ones.
func (l *SelectorLoop) runTimers() {
	now := time.Now()
	for len(l.timers) > 0 {
		t := l.timers[0]
		if t.cancelled.Load() {
			heap.Pop(&l.timers)
			continue
		}
		if t.when.After(now) {
			return
		}
		heap.Pop(&l.timers)
		l.safeExecute(t.fn)
	}
}

// processTasks executes up to taskBudget queued tasks.
func (l *SelectorLoop) processTasks() {
	for i := 0; i < l.taskBudget; i++ {
		fn, ok := l.tasks.Pop()
		if !ok {
			return
		}
		l.safeExecute(fn)
	}
}

// nextTimeout computes the poll timeout in milliseconds from the timer heap,
// skipping cancelled heads. With no timers armed it returns the capped
// maximum so the loop still periodically re-checks its state.
func (l *SelectorLoop) nextTimeout() int {
	for len(l.timers) > 0 && l.timers[0].cancelled.Load() {
		heap.Pop(&l.timers)
	}
	if len(l.timers) == 0 {
		return int(maxPollTimeout / time.Millisecond)
	}
	d := time.Until(l.timers[0].when)
	if d <= 0 {
		return 0
	}
	if d > maxPollTimeout {
		d = maxPollTimeout
	}
	ms := int(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return ms
}

// poll blocks in the platform poller for at most nextTimeout, transitioning
// through StateSleeping so Submit knows to signal the wake fd.
func (l *SelectorLoop) poll() {
	timeout := l.nextTimeout()
	if l.tasks.Len() > 0 {
		timeout = 0
	}

	if timeout != 0 {
		if !l.state.TryTransition(StateRunning, StateSleeping) {
			return // Terminating
		}
		// Tasks pushed between the Len check and the transition would
		// otherwise sleep until the next wake.
		if l.tasks.Len() > 0 {
			timeout = 0
		}
	}

	if l.state.Load() >= StateTerminating {
		return
	}

	if _, err := l.poller.PollIO(timeout); err != nil {
		l.logger.Err().
			Err(err).
			Log("corebridge: poll failed, terminating loop")
		l.state.Store(StateTerminating)
	}

	l.state.TryTransition(StateSleeping, StateRunning)
}

// finalize drains remaining tasks and releases OS resources. Runs on the loop
// goroutine as the last act of Run.
func (l *SelectorLoop) finalize() {
	l.state.Store(StateTerminated)

	// Submit holds an inflight count across its terminated check and its
	// Push, so once inflight drops to zero every accepted task is visible.
	for l.inflight.Load() != 0 {
		runtime.Gosched()
	}

	empty := 0
	for empty < 3 {
		fn, ok := l.tasks.Pop()
		if !ok {
			empty++
			continue
		}
		empty = 0
		l.safeExecute(fn)
	}

	l.closeFDs()
}

func (l *SelectorLoop) closeFDs() {
	if l.fdsClosed.Swap(true) {
		return
	}
	_ = l.poller.Close()
	closeWakeFd(l.wakeReadFd, l.wakeWriteFd)
}

// Shutdown stops the loop and waits for it to finish draining, or for ctx.
// The first call wins; subsequent calls return [ErrLoopTerminated].
func (l *SelectorLoop) Shutdown(ctx context.Context) error {
	var first bool
	var err error
	l.stopOnce.Do(func() {
		first = true
		err = l.shutdownImpl(ctx)
	})
	if !first {
		return ErrLoopTerminated
	}
	return err
}

func (l *SelectorLoop) shutdownImpl(ctx context.Context) error {
	// Never started: nothing to drain, release resources directly.
	if l.state.TryTransition(StateAwake, StateTerminated) {
		l.closeFDs()
		return nil
	}

	l.state.TryTransition(StateRunning, StateTerminating)
	if l.state.TryTransition(StateSleeping, StateTerminating) {
		_ = signalWakeFd(l.wakeWriteFd)
	}

	select {
	case <-l.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// safeExecute runs fn, recovering and logging any panic so a single
// misbehaving callback cannot take down the loop.
func (l *SelectorLoop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().
				Any("panic", r).
				Log("corebridge: callback panicked")
		}
	}()
	fn()
}

var goroutinePrefix = []byte("goroutine ")

// getGoroutineID parses the current goroutine's id from the runtime stack
// header. Slow; used only for loop-thread identity checks.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	if !bytes.HasPrefix(b, goroutinePrefix) {
		return 0
	}
	b = b[len(goroutinePrefix):]
	var id uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
