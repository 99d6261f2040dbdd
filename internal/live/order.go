package live

// highWater forwards completions whose id is at least the highest id
// already forwarded. Once the terminal frame is out everything is dropped.
// Only the delivery goroutine touches it.
type highWater struct {
	mark uint64
	done bool
}

func (h *highWater) accept(id uint64) bool {
	if h.done || id < h.mark {
		return false
	}
	h.mark = id
	return true
}

func (h *highWater) finish() { h.done = true }
