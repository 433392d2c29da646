package compressor

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// minCompressSize is the payload size below which frames are stored raw.
// An lz4 frame header costs more than it saves on tiny inputs.
const minCompressSize = 64

const (
	tagRaw byte = 0
	tagLZ4 byte = 1
)

// Compress returns data as an lz4 frame prefixed with a one-byte tag.
// Payloads shorter than minCompressSize are stored uncompressed.
func Compress(data []byte) ([]byte, error) {
	if len(data) < minCompressSize {
		return append([]byte{tagRaw}, data...), nil
	}

	var compressed bytes.Buffer
	compressed.WriteByte(tagLZ4)
	writer := lz4.NewWriter(&compressed)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return compressed.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decompression failed: empty payload")
	}

	switch data[0] {
	case tagRaw:
		return append([]byte(nil), data[1:]...), nil
	case tagLZ4:
		reader := lz4.NewReader(bytes.NewReader(data[1:]))
		var decompressed bytes.Buffer
		if _, err := io.Copy(&decompressed, reader); err != nil {
			return nil, fmt.Errorf("decompression failed: %w", err)
		}
		return decompressed.Bytes(), nil
	default:
		return nil, fmt.Errorf("decompression failed: unknown tag %d", data[0])
	}
}
