package wal

// OpType represents the type of operation in the WAL
type OpType uint8

const (
	// OpCommit carries one committed mutation batch.
	OpCommit OpType = iota + 1
)

func (o OpType) String() string {
	switch o {
	case OpCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Entry represents a single WAL entry
type Entry struct {
	LSN       uint64 // Log Sequence Number
	OpType    OpType
	Data      []byte
	Checksum  uint32
	Timestamp int64
}

// Stats holds compression statistics
type Stats struct {
	TotalWrites       uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // e.g., 0.75 = 75% compression
}

// Appender is implemented by anything that can durably record an entry.
type Appender interface {
	Append(opType OpType, data []byte) (uint64, error)
}
