package activity

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink appends entry transitions to a JSONL file and mirrors the
// live state in memory so Recent and the transition guards work
// without reparsing the file.
type FileSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	state  *MemorySink
}

// fileRecord is one JSONL line: an insert carries the full entry, a
// transition carries the id and new status.
type fileRecord struct {
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
	Entry  *Entry    `json:"entry,omitempty"`
	ID     string    `json:"id,omitempty"`
	Status string    `json:"status,omitempty"`
}

// NewFileSink opens (or creates) the JSONL file for appending.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return &FileSink{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
		state:  NewMemorySink(),
	}, nil
}

func (s *FileSink) Name() string { return "file_jsonl:" + s.path }

func (s *FileSink) InsertPending(ctx context.Context, e *Entry) error {
	if err := s.state.InsertPending(ctx, e); err != nil {
		return err
	}
	return s.append(fileRecord{Kind: "insert", At: time.Now().UTC(), Entry: e})
}

func (s *FileSink) MarkFinalized(ctx context.Context, id string) error {
	if err := s.state.MarkFinalized(ctx, id); err != nil {
		return err
	}
	return s.append(fileRecord{Kind: "transition", At: time.Now().UTC(), ID: id, Status: StatusFinalized})
}

func (s *FileSink) MarkUndone(ctx context.Context, id string) error {
	if err := s.state.MarkUndone(ctx, id); err != nil {
		return err
	}
	return s.append(fileRecord{Kind: "transition", At: time.Now().UTC(), ID: id, Status: StatusUndone})
}

func (s *FileSink) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return s.state.Recent(ctx, limit)
}

func (s *FileSink) append(rec fileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *FileSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		_ = s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
