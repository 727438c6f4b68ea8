package audio

// FrameRing is a bounded FIFO of frames used as the recorder's pre-roll
// buffer. It is backed by a fixed-capacity array with a head index so that
// pushing never reallocates; when full, the oldest frame is overwritten.
//
// Not safe for concurrent use. The recorder owns its ring exclusively.
type FrameRing struct {
	frames []Frame
	head   int
	count  int
}

// NewFrameRing creates a ring holding at most capacity frames.
// A capacity ≤ 0 yields a ring that drops everything pushed into it.
func NewFrameRing(capacity int) *FrameRing {
	if capacity < 0 {
		capacity = 0
	}
	return &FrameRing{frames: make([]Frame, capacity)}
}

// Push appends f, evicting the oldest frame if the ring is full.
func (r *FrameRing) Push(f Frame) {
	if len(r.frames) == 0 {
		return
	}
	tail := (r.head + r.count) % len(r.frames)
	r.frames[tail] = f
	if r.count < len(r.frames) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.frames)
	}
}

// Frames returns the buffered frames oldest-first in a newly allocated slice.
func (r *FrameRing) Frames() []Frame {
	out := make([]Frame, r.count)
	for i := range r.count {
		out[i] = r.frames[(r.head+i)%len(r.frames)]
	}
	return out
}

// Len returns the number of buffered frames.
func (r *FrameRing) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *FrameRing) Cap() int { return len(r.frames) }

// Reset empties the ring without releasing the backing array.
func (r *FrameRing) Reset() {
	r.head = 0
	r.count = 0
}
