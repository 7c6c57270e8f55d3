package stability

// ring is a fixed-capacity FIFO of labels. Pushing onto a full ring
// overwrites the oldest entry.
type ring struct {
	buf   []string
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]string, capacity)}
}

func (r *ring) Push(label string) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = label
		r.n++
		return
	}
	r.buf[r.start] = label
	r.start = (r.start + 1) % len(r.buf)
}

// Labels returns the contents oldest first.
func (r *ring) Labels() []string {
	out := make([]string, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *ring) Len() int { return r.n }

func (r *ring) Reset() {
	r.start = 0
	r.n = 0
}
