package internal

import "sync"

var defaultRuntime = sync.OnceValue(func() *Runtime {
	return NewRuntime()
})

// Default returns the process-wide runtime, created on first use.
func Default() *Runtime {
	return defaultRuntime()
}
