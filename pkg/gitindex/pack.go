package gitindex

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// packedBlob is a blob body as held in the blob cache: LZ4 block compressed
// when that saves space, stored as is otherwise.
type packedBlob struct {
	data       []byte
	size       int
	compressed bool
}

func packBlob(raw []byte) packedBlob {
	out := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, out, nil)
	if err != nil || written == 0 || written >= len(raw) {
		return packedBlob{data: append([]byte(nil), raw...), size: len(raw)}
	}

	return packedBlob{data: out[:written:written], size: len(raw), compressed: true}
}

func (p packedBlob) unpack() ([]byte, error) {
	if !p.compressed {
		return p.data, nil
	}

	raw := make([]byte, p.size)

	n, err := lz4.UncompressBlock(p.data, raw)
	if err != nil {
		return nil, fmt.Errorf("uncompress blob: %w", err)
	}

	return raw[:n], nil
}

// cost is the memory charged to the cache for p.
func (p packedBlob) cost() int64 {
	return int64(len(p.data))
}
