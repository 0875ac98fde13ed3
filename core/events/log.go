package events

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"wayfind/core/types"
	"wayfind/storage"
)

const subscriberBuffer = 64

var (
	logNextKey   = []byte("events/next")
	logRecordFmt = "events/%016d"
)

// Record is a single entry in the append-only event log. Consumers (auditors,
// analytics) read records only; the mutable protocol state is never exposed to
// them directly.
type Record struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Log is a persistent append-only event log. Every successful operation
// appends exactly one record; failed operations append nothing. Engines do
// not write to the log directly: they emit into a Buffer, whose contents are
// flushed here once the operation's state changes have committed.
type Log struct {
	mu   sync.Mutex
	db   storage.Database
	next uint64
	subs map[uint64]chan Record
	sid  uint64
}

// NewLog opens the event log stored in db, resuming the sequence counter from
// the last run.
func NewLog(db storage.Database) (*Log, error) {
	if db == nil {
		return nil, errors.New("events: nil database")
	}
	l := &Log{db: db, subs: make(map[uint64]chan Record)}
	data, err := db.Get(logNextKey)
	switch {
	case err == nil:
		if len(data) != 8 {
			return nil, fmt.Errorf("events: corrupt sequence counter (%d bytes)", len(data))
		}
		l.next = binary.BigEndian.Uint64(data)
	case errors.Is(err, storage.ErrNotFound):
		l.next = 0
	default:
		return nil, err
	}
	return l, nil
}

func recordKey(seq uint64) []byte {
	return []byte(fmt.Sprintf(logRecordFmt, seq))
}

// Append persists the event as the next record and notifies subscribers. It
// returns the assigned sequence number.
func (l *Log) Append(evt *types.Event) (uint64, error) {
	if evt == nil {
		return 0, errors.New("events: nil event")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{Seq: l.next, Type: evt.Type, Attributes: evt.Attributes}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	if err := l.db.Put(recordKey(rec.Seq), encoded); err != nil {
		return 0, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], rec.Seq+1)
	if err := l.db.Put(logNextKey, buf[:]); err != nil {
		return 0, err
	}
	l.next = rec.Seq + 1

	for _, sub := range l.subs {
		select {
		case sub <- rec:
		default:
			// Slow consumers miss live records; they can re-read from their
			// cursor.
		}
	}
	return rec.Seq, nil
}

// Len returns the number of records appended so far.
func (l *Log) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// Records returns up to limit records starting at the from sequence number. A
// limit of zero or less reads to the end of the log.
func (l *Log) Records(from uint64, limit int) ([]Record, error) {
	l.mu.Lock()
	end := l.next
	l.mu.Unlock()

	if from >= end {
		return []Record{}, nil
	}
	out := make([]Record, 0, end-from)
	for seq := from; seq < end; seq++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := l.db.Get(recordKey(seq))
		if err != nil {
			return nil, fmt.Errorf("events: read record %d: %w", seq, err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("events: decode record %d: %w", seq, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Subscribe registers a live feed starting at cursor. The returned backlog
// covers records already present; subsequent records arrive on the channel
// until cancel is called.
func (l *Log) Subscribe(cursor uint64) (<-chan Record, func(), []Record, error) {
	l.mu.Lock()
	end := l.next
	id := l.sid
	l.sid++
	ch := make(chan Record, subscriberBuffer)
	l.subs[id] = ch
	l.mu.Unlock()

	backlog := make([]Record, 0)
	for seq := cursor; seq < end; seq++ {
		data, err := l.db.Get(recordKey(seq))
		if err == nil {
			var rec Record
			if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
				backlog = append(backlog, rec)
				continue
			}
		}
		l.mu.Lock()
		delete(l.subs, id)
		close(ch)
		l.mu.Unlock()
		return nil, nil, nil, fmt.Errorf("events: read record %d", seq)
	}

	cancel := func() {
		l.mu.Lock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
		l.mu.Unlock()
	}
	return ch, cancel, backlog, nil
}
