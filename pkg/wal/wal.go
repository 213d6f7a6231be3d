// Package wal is the snappy-compressed write-ahead log behind the embedded
// graph store. Every committed transaction is one entry; replaying the log in
// order rebuilds the graph.
package wal

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// FileName is the log file inside the data directory.
const FileName = "wal_compressed.log"

// Log is a Write-Ahead Log with snappy compression
type Log struct {
	file       *os.File
	writer     *bufio.Writer
	currentLSN uint64
	path       string
	syncWrites bool
	mu         sync.Mutex

	totalWrites       uint64
	bytesUncompressed uint64
	bytesCompressed   uint64
}

// Open opens or creates the log in dataDir. When syncWrites is set every
// Append is fsynced before it returns.
func Open(dataDir string, syncWrites bool) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)

	l := &Log{path: path, syncWrites: syncWrites}

	// Read existing entries to set currentLSN and cut any torn tail before
	// new entries are appended after it.
	validSize, err := l.scan(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to recover WAL: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}
	if err := file.Truncate(validSize); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to trim WAL tail: %w", err)
	}
	if _, err := file.Seek(validSize, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek WAL: %w", err)
	}

	l.file = file
	l.writer = bufio.NewWriter(file)
	return l, nil
}

// Append appends a new entry to the log and returns its LSN.
func (l *Log) Append(opType OpType, data []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, errors.New("wal is closed")
	}

	compressed := snappy.Encode(nil, data)
	entry := Entry{
		LSN:       l.currentLSN + 1,
		OpType:    opType,
		Data:      compressed,
		Checksum:  crc32.ChecksumIEEE(compressed),
		Timestamp: time.Now().Unix(),
	}

	if err := writeEntry(l.writer, &entry); err != nil {
		return 0, fmt.Errorf("failed to write WAL entry: %w", err)
	}
	if l.syncWrites {
		if err := l.file.Sync(); err != nil {
			return 0, fmt.Errorf("failed to sync WAL: %w", err)
		}
	}

	l.currentLSN = entry.LSN
	l.totalWrites++
	l.bytesUncompressed += uint64(len(data))
	l.bytesCompressed += uint64(len(compressed))

	return entry.LSN, nil
}

// Replay calls handler for every entry in LSN order. A torn final entry is
// ignored; corruption elsewhere is an error.
func (l *Log) Replay(handler func(*Entry) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return err
		}
	}
	_, err := l.scan(handler)
	return err
}

// scan reads the file from the start and returns the byte offset just past
// the last complete entry.
func (l *Log) scan(handler func(*Entry) error) (int64, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	counter := &countingReader{r: file}
	reader := bufio.NewReader(counter)

	var valid int64
	for {
		entry, err := readEntry(reader)
		if err == io.EOF || errors.Is(err, errTornEntry) {
			return valid, nil
		}
		if err != nil {
			return valid, err
		}

		valid = counter.n - int64(reader.Buffered())
		l.currentLSN = entry.LSN

		if handler != nil {
			if err := handler(entry); err != nil {
				return valid, fmt.Errorf("replay entry %d: %w", entry.LSN, err)
			}
		}
	}
}

// Flush flushes the WAL to disk
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close closes the WAL
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// CurrentLSN returns the LSN of the last appended or replayed entry.
func (l *Log) CurrentLSN() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLSN
}

// Statistics returns compression statistics for entries appended since open.
func (l *Log) Statistics() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	ratio := 0.0
	if l.bytesUncompressed > 0 {
		ratio = 1.0 - (float64(l.bytesCompressed) / float64(l.bytesUncompressed))
	}

	return Stats{
		TotalWrites:       l.totalWrites,
		BytesUncompressed: l.bytesUncompressed,
		BytesCompressed:   l.bytesCompressed,
		CompressionRatio:  ratio,
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ Appender = (*Log)(nil)
