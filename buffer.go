package fl2

// An InBuffer is input for a streaming call. The call consumes Src from
// Pos onward and advances Pos.
type InBuffer struct {
	Src []byte
	Pos int
}

// Remaining returns the unconsumed input.
func (b *InBuffer) Remaining() []byte {
	return b.Src[b.Pos:]
}

func (b *InBuffer) advance(n int) {
	if n < 0 || b.Pos+n > len(b.Src) {
		panic("fl2: InBuffer advanced past its end")
	}
	b.Pos += n
}

// An OutBuffer receives output from a streaming call, which writes to
// Dst[Pos:] and advances Pos.
type OutBuffer struct {
	Dst []byte
	Pos int
}

// Written returns the output produced so far.
func (b *OutBuffer) Written() []byte {
	return b.Dst[:b.Pos]
}

// Free returns the part of Dst that has not been written yet.
func (b *OutBuffer) Free() []byte {
	return b.Dst[b.Pos:]
}

// Full reports whether there is no room left.
func (b *OutBuffer) Full() bool {
	return b.Pos >= len(b.Dst)
}

func (b *OutBuffer) write(p []byte) int {
	n := copy(b.Dst[b.Pos:], p)
	b.Pos += n
	return n
}

// A Status tells the caller of a streaming call what to do next. It is not
// an error: running out of input or output space is normal.
type Status int

const (
	// Done means the operation is complete.
	Done Status = iota
	// MoreInput means all input was consumed and more is needed (or the
	// call can be repeated later with more data).
	MoreInput
	// MoreOutput means output is waiting: the call should be repeated
	// with more room in the output buffer.
	MoreOutput
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case MoreInput:
		return "more input"
	case MoreOutput:
		return "more output"
	}
	return "unknown status"
}
