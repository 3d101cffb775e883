// Package transfer wires the chunking protocol to QR image files: the encoder
// turns files into QR PNGs and the decoder turns QR images back into files.
package transfer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Renderer writes one payload per image file
type Renderer interface {
	Render(path string, text []byte) error
}

// Scanner returns the text of every QR symbol in an image file
type Scanner interface {
	Scan(path string) ([]string, error)
}

// Guard prepares an output directory
type Guard interface {
	Ensure(path string) error
}

// ContentID returns a CIDv1 (raw codec, sha2-256) identifying data. Encode and
// decode both print it so the two ends of a transfer can be compared.
func ContentID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// formatIndices renders indices as [1, 3, 4].
func formatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
