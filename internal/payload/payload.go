// Package payload turns flow documents into storage bytes for the key-value
// and SQL repositories, with optional zstd compression.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic prefixes every zstd frame. JSON documents never start with it, so
// readers accept compressed and plain payloads alike.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	encOnce sync.Once
	encoder *zstd.Encoder
	encErr  error

	decOnce sync.Once
	decoder *zstd.Decoder
	decErr  error
)

func zstdEncoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		encoder, encErr = zstd.NewWriter(nil)
	})
	return encoder, encErr
}

func zstdDecoder() (*zstd.Decoder, error) {
	decOnce.Do(func() {
		decoder, decErr = zstd.NewReader(nil)
	})
	return decoder, decErr
}

// Marshal encodes doc as JSON, compressed when compress is set.
func Marshal(doc *domain.FlowDocument, compress bool) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow: %w", err)
	}
	if !compress {
		return data, nil
	}
	enc, err := zstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, nil), nil
}

// Unmarshal decodes bytes written by Marshal.
func Unmarshal(data []byte) (*domain.FlowDocument, error) {
	if IsCompressed(data) {
		dec, err := zstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress flow: %w", err)
		}
	}

	var doc domain.FlowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &doc, nil
}

// IsCompressed reports whether data is a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}
