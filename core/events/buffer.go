package events

import "wayfind/core/types"

// rawEvent is implemented by emitted events that carry a generic payload.
type rawEvent interface {
	Event() *types.Event
}

// Buffer collects events emitted during a single operation so the host can
// append them to the persistent log only once the operation has committed.
// Events emitted by a failed operation are discarded with the rest of its
// state. Buffer is not safe for concurrent use; the host serializes
// operations.
type Buffer struct {
	pending []*types.Event
}

// NewBuffer returns an empty event buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Emit implements the Emitter interface. Events that do not carry a generic
// payload are ignored.
func (b *Buffer) Emit(evt Event) {
	raw, ok := evt.(rawEvent)
	if !ok {
		return
	}
	payload := raw.Event()
	if payload == nil {
		return
	}
	b.pending = append(b.pending, payload)
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	return len(b.pending)
}

// Reset discards all buffered events.
func (b *Buffer) Reset() {
	b.pending = b.pending[:0]
}

// Flush appends the buffered events to the log in emission order and clears
// the buffer. The first append failure is returned; events already appended
// stay in the log.
func (b *Buffer) Flush(log *Log) error {
	for _, evt := range b.pending {
		if _, err := log.Append(evt); err != nil {
			return err
		}
	}
	b.Reset()
	return nil
}
