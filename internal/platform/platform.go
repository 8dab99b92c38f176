package platform

import "os"

// DefaultChunkSize is the amount of data moved between progress callbacks.
const DefaultChunkSize = 1 << 20 // 1 MiB

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFileParams describes what to copy.
//
// OnChunk, when set, runs after every chunk with the number of bytes just
// written. It is where callers block for pause, throttle bandwidth and bump
// progress counters; a non-nil return stops the copy with that error.
type CopyFileParams struct {
	DstFd     *os.File
	OnChunk   func(n int64) error
	SrcPath   string
	SrcSize   int64
	ChunkSize int64
}

func chunkSize(params CopyFileParams) int64 {
	if params.ChunkSize > 0 {
		return params.ChunkSize
	}
	return DefaultChunkSize
}

func notify(params CopyFileParams, n int64) error {
	if params.OnChunk == nil || n == 0 {
		return nil
	}
	return params.OnChunk(n)
}
