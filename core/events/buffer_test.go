package events

import (
	"errors"
	"testing"

	"wayfind/core/types"
	"wayfind/storage"
)

type bufferedEvent struct {
	payload *types.Event
}

func (e bufferedEvent) EventType() string   { return e.payload.Type }
func (e bufferedEvent) Event() *types.Event { return e.payload }

type opaqueEvent struct{}

func (opaqueEvent) EventType() string { return "opaque" }

// failingDB rejects every write, standing in for a broken metadata store.
type failingDB struct {
	*storage.MemDB
	putErr error
}

func (db *failingDB) Put(key, value []byte) error { return db.putErr }

func TestBufferCollectsInOrder(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(bufferedEvent{payload: testEvent("test.event", "a")})
	buf.Emit(bufferedEvent{payload: testEvent("test.event", "b")})
	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}

	db := storage.NewMemDB()
	log, err := NewLog(db)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	if err := buf.Flush(log); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not cleared after flush: %d", buf.Len())
	}

	records, err := log.Records(0, 0)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(records) != 2 || records[0].Attributes["value"] != "a" || records[1].Attributes["value"] != "b" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestBufferIgnoresOpaqueEvents(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(opaqueEvent{})
	if buf.Len() != 0 {
		t.Fatal("opaque event should not be buffered")
	}
}

func TestBufferResetDiscardsPending(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(bufferedEvent{payload: testEvent("test.event", "discarded")})
	buf.Reset()
	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer after reset, got %d", buf.Len())
	}

	log, err := NewLog(storage.NewMemDB())
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	if err := buf.Flush(log); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if log.Len() != 0 {
		t.Fatalf("reset events leaked into the log: %d", log.Len())
	}
}

func TestFlushSurfacesPersistenceErrors(t *testing.T) {
	wantErr := errors.New("disk full")
	db := &failingDB{MemDB: storage.NewMemDB(), putErr: wantErr}
	log, err := NewLog(db)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}

	buf := NewBuffer()
	buf.Emit(bufferedEvent{payload: testEvent("test.event", "lost")})
	if err := buf.Flush(log); !errors.Is(err, wantErr) {
		t.Fatalf("expected the write error to surface, got %v", err)
	}
	if log.Len() != 0 {
		t.Fatalf("failed append must not advance the log, got %d", log.Len())
	}
}
