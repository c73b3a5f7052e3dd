// Package file implements journal.Storage on a pair of plain files: an
// append-only operation log and a single checkpoint slot, identified by a
// shared path prefix ("<prefix>.log" and "<prefix>.ckpt").
package file

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ymarkovitch/pcomn-go/journal"
	"github.com/ymarkovitch/pcomn-go/metrics"
)

const (
	defaultMagic  = 0x706a726e // "pjrn"
	checkpointExt = ".ckpt"
	logExt        = ".log"
	ckptHeaderLen = 8 // magic_u32, generation_u32
)

// Storage is a journal.Storage backed by a log file and a checkpoint file
// sharing a path prefix. The zero value is not usable; construct with Open.
type Storage struct {
	mu sync.Mutex

	prefix    string
	magic     uint32
	userMagic uint32
	readOnly  bool

	log *os.File

	ckptPath    string
	pendingPath string
	pendingFile *os.File
}

// Open opens (creating if necessary) the log and checkpoint files at
// prefix+".log"/prefix+".ckpt". If readOnly is true, AppendRecord and
// CreateCheckpoint fail until MakeWritable is called.
func Open(prefix string, readOnly bool) (*Storage, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}
	logFile, err := os.OpenFile(prefix+logExt, flags, 0644)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		prefix:   prefix,
		magic:    defaultMagic,
		readOnly: readOnly,
		log:      logFile,
		ckptPath: prefix + checkpointExt,
	}
	return s, nil
}

// SetUserMagic stores an additional application-chosen magic word that is
// folded into every record's on-disk magic, so a Storage opened against the
// wrong application's files fails fast with ErrBadMagic instead of silently
// misparsing.
func (s *Storage) SetUserMagic(magic uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userMagic = magic
	s.magic = defaultMagic ^ magic
	return nil
}

// MakeWritable reopens the log file for read-write access.
func (s *Storage) MakeWritable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readOnly {
		return nil
	}
	s.log.Close()
	logFile, err := os.OpenFile(s.prefix+logExt, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	s.log = logFile
	s.readOnly = false
	return nil
}

// AppendRecord serializes op with journal.EncodeRecord and appends it to the
// log file, returning the byte offset it was written at.
func (s *Storage) AppendRecord(generation uint32, op journal.Operation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return 0, fmt.Errorf("journal/storage/file: storage %q is read-only", s.prefix)
	}
	offset, err := s.log.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	record := journal.EncodeRecord(s.magic, generation, op)
	if _, err := s.log.Write(record); err != nil {
		return 0, err
	}
	metrics.JournalRecordBytesHistogram.Observe(float64(len(record)))
	return offset, nil
}

// ReplayRecords scans the log file from the beginning, calling handler for
// every record whose generation is >= fromGeneration.
func (s *Storage) ReplayRecords(fromGeneration uint32, handler journal.RecordHandler) error {
	s.mu.Lock()
	path := s.log.Name()
	magic := s.magic
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		op, generation, err := journal.DecodeRecord(r, magic)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if generation < fromGeneration {
			continue
		}
		if err := handler(op, generation); err != nil {
			return err
		}
	}
}

// CreateCheckpoint opens a new temporary checkpoint file (prefix+".ckpt.new")
// and allocates the next generation id by reading the current checkpoint's
// header, if any.
func (s *Storage) CreateCheckpoint() (io.WriteCloser, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return nil, 0, fmt.Errorf("journal/storage/file: storage %q is read-only", s.prefix)
	}
	if s.pendingFile != nil {
		return nil, 0, journal.ErrStateError
	}

	_, currentGen, err := s.readCheckpointHeader()
	nextGen := currentGen + 1
	if err != nil && !os.IsNotExist(err) {
		return nil, 0, err
	}

	pendingPath := s.ckptPath + ".new"
	f, err := os.OpenFile(pendingPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, 0, err
	}
	header := make([]byte, ckptHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], s.magic)
	binary.LittleEndian.PutUint32(header[4:8], nextGen)
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, 0, err
	}

	s.pendingPath = pendingPath
	s.pendingFile = f
	return f, nextGen, nil
}

// CloseCheckpoint finalises the pending checkpoint. commit=true renames it
// over the previous checkpoint file; commit=false removes it.
func (s *Storage) CloseCheckpoint(commit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingFile == nil {
		return journal.ErrStateError
	}
	pendingPath := s.pendingPath
	f := s.pendingFile
	s.pendingFile = nil
	s.pendingPath = ""

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(pendingPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(pendingPath)
		return err
	}
	if !commit {
		return os.Remove(pendingPath)
	}
	return os.Rename(pendingPath, s.ckptPath)
}

// ReplayCheckpoint calls handler with a reader positioned just past the
// checkpoint file's header, over the body written by the application's
// Snapshot. It returns journal.ErrNoCheckpoint if no checkpoint file exists.
func (s *Storage) ReplayCheckpoint(handler func(r io.Reader) error) (uint32, error) {
	s.mu.Lock()
	path := s.ckptPath
	magic := s.magic
	s.mu.Unlock()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, journal.ErrNoCheckpoint
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, ckptHeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, err
	}
	fileMagic := binary.LittleEndian.Uint32(header[0:4])
	generation := binary.LittleEndian.Uint32(header[4:8])
	if fileMagic != magic {
		return 0, journal.ErrBadMagic
	}
	if err := handler(f); err != nil {
		return 0, err
	}
	return generation, nil
}

func (s *Storage) readCheckpointHeader() (magic uint32, generation uint32, err error) {
	f, err := os.Open(s.ckptPath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	header := make([]byte, ckptHeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(header[0:4]), binary.LittleEndian.Uint32(header[4:8]), nil
}

// Close releases the log file handle. It does not remove any files.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Close()
}
