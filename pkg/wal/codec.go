package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
)

// errTornEntry marks an entry cut short by a crash mid-write.
var errTornEntry = errors.New("torn wal entry")

// writeEntry writes an entry with its compressed payload.
// Format: [LSN:8][OpType:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
func writeEntry(w *bufio.Writer, entry *Entry) error {
	if err := binary.Write(w, binary.BigEndian, entry.LSN); err != nil {
		return err
	}
	if err := w.WriteByte(byte(entry.OpType)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(entry.Data))); err != nil {
		return err
	}
	if _, err := w.Write(entry.Data); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, entry.Checksum); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, entry.Timestamp); err != nil {
		return err
	}
	return w.Flush()
}

// readEntry reads the next entry and returns it with the payload decompressed.
// io.EOF means a clean end of log; errTornEntry means the tail is incomplete.
func readEntry(r *bufio.Reader) (*Entry, error) {
	entry := &Entry{}

	if err := binary.Read(r, binary.BigEndian, &entry.LSN); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errTornEntry
	}

	opType, err := r.ReadByte()
	if err != nil {
		return nil, errTornEntry
	}
	entry.OpType = OpType(opType)

	var dataLen uint32
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return nil, errTornEntry
	}

	compressed := make([]byte, dataLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, errTornEntry
	}

	if err := binary.Read(r, binary.BigEndian, &entry.Checksum); err != nil {
		return nil, errTornEntry
	}
	if crc32.ChecksumIEEE(compressed) != entry.Checksum {
		return nil, fmt.Errorf("checksum mismatch for entry %d", entry.LSN)
	}

	if err := binary.Read(r, binary.BigEndian, &entry.Timestamp); err != nil {
		return nil, errTornEntry
	}

	entry.Data, err = snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress WAL entry %d: %w", entry.LSN, err)
	}

	return entry, nil
}
