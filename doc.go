// Package corebridge bridges a native, callback-driven I/O engine to a Go
// cooperative scheduler, converting the engine's one-shot callback protocol
// into futures with at-most-once delivery.
//
// # Architecture
//
// The package is built around a small [Loop] capability interface (reader and
// writer registration, deferred calls, task submission). A [LoopSelector]
// resolves the single process-wide working loop, falling back to the portable
// [SelectorLoop] implementation when no compatible loop is supplied.
//
// Three stateless adapters translate the native engine's vocabulary into loop
// operations:
//   - [SocketWatcher] maps watch/unwatch requests with READABLE/WRITABLE
//     flags onto reader/writer registrations ([SocketWatcher.UpdateEvent])
//   - [TimerBridge] maps one-shot timer requests onto [Loop.CallLater],
//     enforcing the cancel-before-rearm discipline
//   - [CompletionBridge] wraps any [PendingOperation] into a [Future] with
//     exactly-once settlement and callback-reference cleanup
//
// [Connector] builds on the completion bridge to provide idempotent
// connect/reconnect, and [RetryPoller] provides bounded fixed-interval
// retry/poll helpers for absorbing eventual-consistency delays.
//
// # Platform Support
//
// The fallback [SelectorLoop] polls with platform-native mechanisms:
//   - Linux: epoll (eventfd wake-up)
//   - macOS: kqueue (self-pipe wake-up)
//
// # Thread Safety
//
// Native engine callbacks fire on the loop goroutine, never concurrently with
// each other. Event registration is only ever mutated from that goroutine,
// which is what keeps [SocketWatcher] and [TimerBridge] lock-free. Code on
// other goroutines crosses onto the loop goroutine via [Loop.Submit], or
// synchronously via [CallSync].
//
// # Usage
//
//	selector, _ := corebridge.NewLoopSelector()
//	loop, err := selector.GetEventLoop(nil) // constructs and runs the fallback loop
//	if err != nil {
//	    return err
//	}
//	defer selector.CloseEventLoop()
//
//	bridge, _ := corebridge.NewCompletionBridge()
//	connect := corebridge.Adapt(bridge, func(addr string) (corebridge.PendingOperation, error) {
//	    return engine.Dial(addr) // native dispatch; argument errors propagate synchronously
//	})
//	future, err := connect("10.0.0.1:11210")
//	if err != nil {
//	    return err
//	}
//	result, err := future.Wait(ctx)
package corebridge
