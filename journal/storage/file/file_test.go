package file_test

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/ymarkovitch/pcomn-go/journal"
	jfile "github.com/ymarkovitch/pcomn-go/journal/storage/file"
)

func op(opcode uint32, body []byte) journal.Operation {
	return journal.Operation{Opcode: opcode, Opversion: 1, Body: body}
}

func TestAppendAndReplayRecords(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "test")
	s, err := jfile.Open(prefix, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.AppendRecord(1, op(10, []byte("hello"))); err != nil {
		t.Fatalf("AppendRecord 1: %v", err)
	}
	if _, err := s.AppendRecord(1, op(11, nil)); err != nil {
		t.Fatalf("AppendRecord 2: %v", err)
	}
	if _, err := s.AppendRecord(2, op(12, []byte("world"))); err != nil {
		t.Fatalf("AppendRecord 3: %v", err)
	}

	var got []journal.Operation
	err = s.ReplayRecords(0, func(o journal.Operation, generation uint32) error {
		got = append(got, o)
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayRecords: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}

	var fromGen2 []journal.Operation
	err = s.ReplayRecords(2, func(o journal.Operation, generation uint32) error {
		fromGen2 = append(fromGen2, o)
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayRecords from 2: %v", err)
	}
	if len(fromGen2) != 1 || fromGen2[0].Opcode != 12 {
		t.Fatalf("fromGen2 = %+v, want single opcode 12 record", fromGen2)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "test")
	s, err := jfile.Open(prefix, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.ReplayCheckpoint(func(r io.Reader) error {
		return nil
	}); err != journal.ErrNoCheckpoint {
		t.Fatalf("ReplayCheckpoint before any checkpoint: got %v, want ErrNoCheckpoint", err)
	}

	w, gen, err := s.CreateCheckpoint()
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if gen != 1 {
		t.Fatalf("first generation = %d, want 1", gen)
	}
	if _, err := w.Write([]byte("snapshot-body")); err != nil {
		t.Fatalf("write snapshot body: %v", err)
	}
	if err := s.CloseCheckpoint(true); err != nil {
		t.Fatalf("CloseCheckpoint: %v", err)
	}

	var body []byte
	replayedGen, err := s.ReplayCheckpoint(func(r io.Reader) error {
		buf := make([]byte, 64)
		n, _ := r.Read(buf)
		body = buf[:n]
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayCheckpoint: %v", err)
	}
	if replayedGen != 1 {
		t.Fatalf("replayed generation = %d, want 1", replayedGen)
	}
	if !bytes.Equal(body, []byte("snapshot-body")) {
		t.Fatalf("body = %q, want %q", body, "snapshot-body")
	}

	w2, gen2, err := s.CreateCheckpoint()
	if err != nil {
		t.Fatalf("CreateCheckpoint 2: %v", err)
	}
	if gen2 != 2 {
		t.Fatalf("second generation = %d, want 2", gen2)
	}
	w2.Write([]byte("ignored"))
	if err := s.CloseCheckpoint(false); err != nil {
		t.Fatalf("CloseCheckpoint rollback: %v", err)
	}

	_, replayedGenAfterRollback, err := s.CreateCheckpoint()
	if err != nil {
		t.Fatalf("CreateCheckpoint after rollback: %v", err)
	}
	if replayedGenAfterRollback != 2 {
		t.Fatalf("generation after rolled-back checkpoint = %d, want 2 (rollback must not bump the counter)", replayedGenAfterRollback)
	}
	s.CloseCheckpoint(false)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "test")
	rw, err := jfile.Open(prefix, false)
	if err != nil {
		t.Fatalf("Open rw: %v", err)
	}
	rw.Close()

	ro, err := jfile.Open(prefix, true)
	if err != nil {
		t.Fatalf("Open ro: %v", err)
	}
	defer ro.Close()

	if _, err := ro.AppendRecord(1, op(1, nil)); err == nil {
		t.Fatal("AppendRecord on read-only storage: want error, got nil")
	}
	if err := ro.MakeWritable(); err != nil {
		t.Fatalf("MakeWritable: %v", err)
	}
	if _, err := ro.AppendRecord(1, op(1, nil)); err != nil {
		t.Fatalf("AppendRecord after MakeWritable: %v", err)
	}
}
