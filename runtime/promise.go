package runtime

import "github.com/dop251/goja"

// awaitTopLevel settles the Promise an entry file's async wrapper returns.
// goja has no real event loop or async I/O source, so any pending reaction
// scheduled by user code resolves during the same microtask flush that
// follows the draining script below; a promise still pending after that is
// treated as a bug in the evaluated program rather than something worth
// waiting on.
func awaitTopLevel(vm *goja.Runtime, val goja.Value) (goja.Value, error) {
	p, ok := val.Export().(*goja.Promise)
	if !ok {
		return val, nil
	}

	if p.State() == goja.PromiseStatePending {
		drain, err := goja.Compile("<drain>", "void 0;", false)
		if err == nil {
			vm.RunProgram(drain)
		}
	}

	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, &UnhandledRejectionError{Value: p.Result().String()}
	default:
		return nil, &UnhandledRejectionError{Value: "top-level promise never settled"}
	}
}

// UnhandledRejectionError surfaces a rejected (or never-settling) top-level
// promise from the entry file's async wrapper.
type UnhandledRejectionError struct {
	Value string
}

func (e *UnhandledRejectionError) Error() string {
	return "unhandled rejection: " + e.Value
}
