package chunking

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/license-fn/qrcode-file-transfer/pkg/payload"
)

var (
	// ErrTotalMismatch reports a chunk whose totalChunks disagrees with the
	// chunks already seen for the same name.
	ErrTotalMismatch = errors.New("totalChunks does not match earlier chunks")

	ErrIncomplete = errors.New("chunk set is incomplete")
)

// FileAssembly collects the chunks of one file, indexed by chunk number
type FileAssembly struct {
	Name  string
	slots []*string
}

// NewFileAssembly creates an empty assembly sized from the first chunk seen
// for a name.
func NewFileAssembly(first payload.ChunkPayload) *FileAssembly {
	return &FileAssembly{
		Name:  first.Name,
		slots: make([]*string, first.Count()),
	}
}

// Len returns the number of slots, filled or not.
func (a *FileAssembly) Len() int {
	return len(a.slots)
}

// Insert stores the chunk's data in its slot. A chunk for an already filled
// slot replaces the earlier data and duplicate is reported as true.
func (a *FileAssembly) Insert(p payload.ChunkPayload) (duplicate bool, err error) {
	if p.Name != a.Name {
		return false, fmt.Errorf("chunk for %q inserted into assembly for %q", p.Name, a.Name)
	}
	if p.Count() != len(a.slots) {
		return false, fmt.Errorf("%w: chunk %d of %s reports totalChunks %d, expected %d",
			ErrTotalMismatch, p.ChunkNumber, a.Name, p.TotalChunks, len(a.slots)-1)
	}
	if p.ChunkNumber < 0 || p.ChunkNumber >= len(a.slots) {
		return false, fmt.Errorf("invalid chunk index: %d", p.ChunkNumber)
	}

	duplicate = a.slots[p.ChunkNumber] != nil
	data := p.Data
	a.slots[p.ChunkNumber] = &data
	return duplicate, nil
}

// Complete reports whether every slot is filled
func (a *FileAssembly) Complete() bool {
	for _, s := range a.slots {
		if s == nil {
			return false
		}
	}
	return true
}

// Missing returns the unfilled chunk numbers in ascending order.
func (a *FileAssembly) Missing() []int {
	var missing []int
	for i, s := range a.slots {
		if s == nil {
			missing = append(missing, i)
		}
	}
	return missing
}

// Join concatenates the slots in chunk order. Unfilled slots contribute
// nothing, so callers check Complete first.
func (a *FileAssembly) Join() string {
	var sb strings.Builder
	for _, s := range a.slots {
		if s != nil {
			sb.WriteString(*s)
		}
	}
	return sb.String()
}

// Bytes decodes the joined base64 text back into the original file content.
func (a *FileAssembly) Bytes() ([]byte, error) {
	if !a.Complete() {
		return nil, fmt.Errorf("%w: %s missing chunks %v", ErrIncomplete, a.Name, a.Missing())
	}

	data, err := base64.StdEncoding.DecodeString(a.Join())
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 for %s: %w", a.Name, err)
	}
	return data, nil
}
