package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sugawarayuuta/sonnet"

	"whirlpools/internal/model"
)

// JsonlJournal appends swap records to a JSONL file.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

// PutSwapBatch appends a batch of swap records as JSON lines.
func (j *JsonlJournal) PutSwapBatch(records []model.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := sonnet.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal swap record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write swap record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

// ReadSwapRecords reads every record of a JSONL journal. A missing file is an
// empty journal.
func ReadSwapRecords(path string) ([]model.SwapRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var records []model.SwapRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record model.SwapRecord
		if err := sonnet.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return records, nil
}
