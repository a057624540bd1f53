package tracking

// Join collects a fixed set of named inputs and runs a combinator exactly
// once, on the goroutine that supplies the last missing input. It replaces
// the duplicated "if the other side is ready too, apply" checks that would
// otherwise live at every asynchronous completion call site.
//
// Join carries no lock of its own; the engine calls it under its mutex.
type Join struct {
	waiting map[string]bool
	fired   bool
	fn      func()
}

// NewJoin creates a join over the given input names.
func NewJoin(fn func(), inputs ...string) *Join {
	waiting := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		waiting[input] = true
	}
	return &Join{waiting: waiting, fn: fn}
}

// Supply marks one input present. Supplying an unknown or already-present
// input is harmless. When the last input arrives the combinator runs once.
func (j *Join) Supply(input string) {
	delete(j.waiting, input)
	if j.fired || len(j.waiting) > 0 {
		return
	}
	j.fired = true
	j.fn()
}

// Done reports whether the combinator has run.
func (j *Join) Done() bool {
	return j.fired
}
