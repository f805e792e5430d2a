package repository

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil)
)

func encodeDoc(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return encoder.EncodeAll(b, nil), nil
}

func decodeDoc(data []byte, v any) error {
	b, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to decompress document: %w", ErrPersistence, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: failed to unmarshal document: %w", ErrPersistence, err)
	}
	return nil
}
