package zstdio_test

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	jfile "github.com/ymarkovitch/pcomn-go/journal/storage/file"
	"github.com/ymarkovitch/pcomn-go/journal/storage/zstdio"
)

func TestCheckpointRoundTripThroughZstd(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "test")
	inner, err := jfile.Open(prefix, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inner.Close()

	storage := zstdio.Wrap(inner)

	data := make([]byte, 50000)
	for i := range data {
		data[i] = byte((i * 37) % 256)
	}

	w, _, err := storage.CreateCheckpoint()
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := storage.CloseCheckpoint(true); err != nil {
		t.Fatalf("CloseCheckpoint: %v", err)
	}

	var got []byte
	_, err = storage.ReplayCheckpoint(func(r io.Reader) error {
		b, err := io.ReadAll(r)
		got = b
		return err
	})
	if err != nil {
		t.Fatalf("ReplayCheckpoint: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round-tripped %d bytes, want %d bytes matching original", len(got), len(data))
	}
}
