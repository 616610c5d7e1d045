package tools

import "fmt"

// Stream runs fn in its own goroutine and returns the event channel it
// emits on. The channel is closed when fn returns. A panic inside fn is
// recovered into a terminal error event, so a single tool fault can never
// take down the process.
//
// Tool implementations should build Call on top of this helper and check
// ctx at every emit.
func Stream(fn func(emit func(Event))) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer func() {
			if r := recover(); r != nil {
				ch <- ErrorEvent(fmt.Errorf("tool panicked: %v", r))
			}
		}()
		fn(func(ev Event) { ch <- ev })
	}()
	return ch
}
