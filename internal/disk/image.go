package disk

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// image is the on-disk record: the block mapping and a checksum of its serialized form.
// encoding/json writes map keys in sorted order, so serializing the same mapping twice
// yields identical bytes and the checksum can be recomputed on load.
type image struct {
	Blocks   map[uint64][]byte `json:"blocks"`
	Checksum uint64            `json:"checksum"`
}

// Checksum computes the 64-bit checksum of a block mapping.
func Checksum(blocks map[uint64][]byte) (uint64, error) {
	b, err := json.Marshal(blocks)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return xxhash.Sum64(b), nil
}

func encodeImage(blocks map[uint64][]byte) ([]byte, error) {
	sum, err := Checksum(blocks)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(image{Blocks: blocks, Checksum: sum})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func decodeImage(data []byte) (map[uint64][]byte, error) {
	var img image
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	if img.Blocks == nil {
		img.Blocks = make(map[uint64][]byte)
	}

	sum, err := Checksum(img.Blocks)
	if err != nil {
		return nil, err
	}
	if sum != img.Checksum {
		return nil, errors.Wrapf(ErrChecksumMismatch, "computed: %016x, stored: %016x", sum, img.Checksum)
	}
	return img.Blocks, nil
}

// nextCursor returns the id after the highest stored block, or 0 for an empty mapping.
func nextCursor(blocks map[uint64][]byte) uint64 {
	var next uint64
	for id := range blocks {
		if id+1 > next {
			next = id + 1
		}
	}
	return next
}
