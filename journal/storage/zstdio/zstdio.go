// Package zstdio wraps a journal.Storage so that checkpoint bodies are
// transparently compressed and decompressed through an external zstd
// process, while the operation log itself is left untouched.
package zstdio

import (
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/m-lab/go/rtx"

	"github.com/ymarkovitch/pcomn-go/journal"
)

// Variables to allow whitebox mocking for testing error conditions.
var (
	osPipe      = os.Pipe
	zstdCommand = "zstd"
)

// Storage decorates an underlying journal.Storage, compressing every
// checkpoint written through CreateCheckpoint and decompressing it on
// ReplayCheckpoint. AppendRecord/ReplayRecords and the other methods pass
// straight through to the underlying Storage.
type Storage struct {
	journal.Storage
}

// Wrap returns a Storage that compresses checkpoint bodies written through
// inner with an external zstd process.
func Wrap(inner journal.Storage) *Storage {
	return &Storage{Storage: inner}
}

type waitingWriteCloser struct {
	io.WriteCloser
	wg *sync.WaitGroup
}

func (w waitingWriteCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		return err
	}
	w.wg.Wait()
	return nil
}

// CreateCheckpoint opens the underlying Storage's checkpoint writer and
// returns a writer that pipes all writes through a zstd compression
// process feeding it. Close() on the returned writer blocks until the zstd
// subprocess has finished writing to the underlying writer.
func (s *Storage) CreateCheckpoint() (io.WriteCloser, uint32, error) {
	inner, generationID, err := s.Storage.CreateCheckpoint()
	if err != nil {
		return nil, 0, err
	}

	pipeR, pipeW, err := osPipe()
	if err != nil {
		inner.Close()
		return nil, 0, err
	}

	var wg sync.WaitGroup
	wg.Add(1)

	cmd := exec.Command(zstdCommand)
	cmd.Stdin = pipeR
	cmd.Stdout = inner

	if err := cmd.Start(); err != nil {
		pipeR.Close()
		pipeW.Close()
		inner.Close()
		return nil, 0, err
	}

	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Println("zstdio: zstd compression error:", err)
		}
		pipeR.Close()
		wg.Done()
	}()

	return waitingWriteCloser{pipeW, &wg}, generationID, nil
}

// ReplayCheckpoint decompresses the underlying Storage's checkpoint bytes
// through an external zstd process before calling handler.
func (s *Storage) ReplayCheckpoint(handler func(r io.Reader) error) (uint32, error) {
	return s.Storage.ReplayCheckpoint(func(r io.Reader) error {
		pipeR, pipeW, err := osPipe()
		if err != nil {
			return err
		}

		cmd := exec.Command(zstdCommand, "-d", "-c")
		cmd.Stdin = r
		cmd.Stdout = pipeW

		if err := cmd.Start(); err != nil {
			pipeR.Close()
			pipeW.Close()
			return err
		}

		done := make(chan error, 1)
		go func() {
			done <- cmd.Wait()
			pipeW.Close()
		}()

		if err := handler(pipeR); err != nil {
			pipeR.Close()
			<-done
			return err
		}
		pipeR.Close()
		rtx.Must(<-done, "zstdio: zstd decompression failed")
		return nil
	})
}
