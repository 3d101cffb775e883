package chunking

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/license-fn/qrcode-file-transfer/pkg/payload"
)

// DefaultChunkBudget is the number of base64 characters carried per QR code.
// The scanner handles roughly 650 characters once JSON framing is added.
const DefaultChunkBudget = 625

var (
	// ErrInvalidBudget is returned for a chunk budget below one character.
	ErrInvalidBudget = errors.New("chunk budget must be at least 1")

	// ErrTooLarge is returned when a file needs more than payload.MaxChunks
	// chunks at the given budget.
	ErrTooLarge = errors.New("file needs too many chunks")
)

// ChunkCount returns the number of chunks needed for encodedLen base64
// characters. An empty encoding still occupies one chunk.
func ChunkCount(encodedLen, budget int) int {
	if encodedLen == 0 {
		return 1
	}
	return (encodedLen + budget - 1) / budget
}

// Split base64-encodes data and cuts the result into budget-sized windows,
// one payload per window.
func Split(data []byte, name string, budget int) ([]payload.ChunkPayload, error) {
	if budget < 1 {
		return nil, ErrInvalidBudget
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	count := ChunkCount(len(encoded), budget)
	if count > payload.MaxChunks {
		return nil, fmt.Errorf("%w: %d chunks of %d characters, limit %d",
			ErrTooLarge, count, budget, payload.MaxChunks)
	}
	baseName := filepath.Base(name)

	chunks := make([]payload.ChunkPayload, 0, count)
	for i := 0; i < count; i++ {
		start := i * budget
		end := start + budget
		if end > len(encoded) {
			end = len(encoded)
		}

		chunks = append(chunks, payload.ChunkPayload{
			ChunkNumber: i,
			TotalChunks: count - 1,
			Name:        baseName,
			Data:        encoded[start:end],
		})
	}

	return chunks, nil
}

// SplitFile reads the file at path and splits its content. The content is
// returned alongside the chunks so callers can fingerprint it.
func SplitFile(path string, budget int) ([]payload.ChunkPayload, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	chunks, err := Split(data, path, budget)
	if err != nil {
		return nil, nil, err
	}
	return chunks, data, nil
}
