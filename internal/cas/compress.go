package cas

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Stored payloads are zstd frames. EncodeAll/DecodeAll are safe for concurrent use,
// so a single encoder and decoder serve every backend.
var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() {
	encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if codecErr != nil {
		return
	}
	decoder, codecErr = zstd.NewReader(nil)
}

// Compress returns the zstd encoding of data.
func Compress(data []byte) ([]byte, error) {
	codecOnce.Do(initCodec)
	if codecErr != nil {
		return nil, fmt.Errorf("zstd codec: %w", codecErr)
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2+16)), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	codecOnce.Do(initCodec)
	if codecErr != nil {
		return nil, fmt.Errorf("zstd codec: %w", codecErr)
	}
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
