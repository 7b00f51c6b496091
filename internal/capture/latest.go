package capture

import "sync"

// FrameBuffer holds the most recent JPEG preview frame and fans it out to
// stream subscribers. Publishers should check Watching first so frames are
// only encoded while someone is looking.
type FrameBuffer struct {
	mu     sync.Mutex
	latest []byte
	subs   map[chan []byte]struct{}
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{subs: make(map[chan []byte]struct{})}
}

// Watching reports whether any subscriber is attached.
func (b *FrameBuffer) Watching() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs) > 0
}

// Publish stores jpeg as the latest frame and offers it to every
// subscriber. Slow subscribers skip frames rather than block the caller.
func (b *FrameBuffer) Publish(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = jpeg
	for ch := range b.subs {
		select {
		case ch <- jpeg:
		default:
		}
	}
}

// Latest returns the most recently published frame, or nil.
func (b *FrameBuffer) Latest() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Subscribe returns a channel receiving published frames and a function
// that detaches it. The channel is never closed.
func (b *FrameBuffer) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
		})
	}
}
