// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Capped, append-only console buffer shared by a session and its viewers

package logbuf

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultCapacity is the number of lines a console keeps before evicting the oldest
const DefaultCapacity = 1000

// Chunk is the answer to a cursor read
type Chunk struct {
	Epoch     int      `json:"epoch"`
	Lines     []string `json:"lines"`
	Next      uint64   `json:"next"`
	Truncated bool     `json:"truncated"` // caller must discard what it has and replace it with Lines
}

// Buffer holds the most recent lines of console output.
// Every line gets a sequence number; readers poll with the last number they saw.
type Buffer struct {
	mu       sync.RWMutex
	lines    []string
	capacity int
	total    uint64
	epoch    int

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates a buffer holding at most capacity lines
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
		subs:     make(map[int]chan struct{}),
	}
}

// Capacity returns the maximum number of retained lines
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Append adds text to the buffer, one entry per line.
// A single trailing newline does not produce an empty entry.
func (b *Buffer) Append(text string) {
	lines := splitLines(text)

	b.mu.Lock()
	b.lines = append(b.lines, lines...)
	b.total += uint64(len(lines))
	if over := len(b.lines) - b.capacity; over > 0 {
		// Shift in place so the backing array stops growing
		copy(b.lines, b.lines[over:])
		clear(b.lines[b.capacity:])
		b.lines = b.lines[:b.capacity]
	}
	b.mu.Unlock()

	b.notify()
}

// Appendf is a convenience for formatted single lines
func (b *Buffer) Appendf(format string, args ...any) {
	b.Append(fmt.Sprintf(format, args...))
}

// Lines returns a copy of the retained lines, oldest first
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of retained lines
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Render returns the display form of the console: retained lines joined by newlines
func (b *Buffer) Render() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, "\n")
}

// Since returns the lines appended after cursor within the given epoch.
// If the epoch changed or lines were evicted before being read, the whole
// retained content is returned with Truncated set.
func (b *Buffer) Since(epoch int, cursor uint64) Chunk {
	b.mu.RLock()
	defer b.mu.RUnlock()

	first := b.total - uint64(len(b.lines))
	chunk := Chunk{Epoch: b.epoch, Next: b.total}

	start := 0
	switch {
	case epoch != b.epoch || cursor < first:
		chunk.Truncated = true
	case cursor >= b.total:
		start = len(b.lines)
	default:
		start = int(cursor - first)
	}

	chunk.Lines = make([]string, len(b.lines)-start)
	copy(chunk.Lines, b.lines[start:])
	return chunk
}

// Reset clears the buffer and starts a new epoch, optionally seeding a first line
func (b *Buffer) Reset(welcome string) {
	b.mu.Lock()
	clear(b.lines)
	b.lines = b.lines[:0]
	b.epoch++
	if welcome != "" {
		lines := splitLines(welcome)
		b.lines = append(b.lines, lines...)
		b.total += uint64(len(lines))
	}
	b.mu.Unlock()

	b.notify()
}

// Subscribe returns a channel that receives a signal whenever the buffer changes.
// Signals coalesce; readers should follow up with Since.
func (b *Buffer) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (b *Buffer) notify() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
