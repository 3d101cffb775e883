package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MaxChunks bounds the number of chunks one file may be split into. At the
// default budget this allows files of roughly 480 MiB.
const MaxChunks = 1 << 20

// ErrMalformed is wrapped by every error returned from Decode.
var ErrMalformed = errors.New("malformed chunk payload")

// ChunkPayload is the unit carried by a single QR symbol
type ChunkPayload struct {
	ChunkNumber int    `json:"chunkNumber"` // 0-based index of this chunk
	TotalChunks int    `json:"totalChunks"` // Index of the last chunk, not the count
	Name        string `json:"name"`        // Base name of the original file
	Data        string `json:"data"`        // Window of the file's base64 encoding
}

// wirePayload mirrors ChunkPayload with pointers so missing fields can be told
// apart from zero values.
type wirePayload struct {
	ChunkNumber *int    `json:"chunkNumber"`
	TotalChunks *int    `json:"totalChunks"`
	Name        *string `json:"name"`
	Data        *string `json:"data"`
}

// Count returns the number of chunks in the payload's file.
func (p ChunkPayload) Count() int {
	return p.TotalChunks + 1
}

// Validate checks the payload's fields for internal consistency
func (p ChunkPayload) Validate() error {
	if p.TotalChunks < 0 {
		return fmt.Errorf("%w: negative totalChunks %d", ErrMalformed, p.TotalChunks)
	}
	if p.TotalChunks >= MaxChunks {
		return fmt.Errorf("%w: totalChunks %d exceeds limit %d", ErrMalformed, p.TotalChunks, MaxChunks-1)
	}
	if p.ChunkNumber < 0 || p.ChunkNumber > p.TotalChunks {
		return fmt.Errorf("%w: chunkNumber %d outside [0, %d]", ErrMalformed, p.ChunkNumber, p.TotalChunks)
	}
	if err := validateName(p.Name); err != nil {
		return err
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformed)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: name %q is not a base name", ErrMalformed, name)
	}
	for i := 0; i < len(name); i++ {
		if os.IsPathSeparator(name[i]) {
			return fmt.Errorf("%w: name %q is not a base name", ErrMalformed, name)
		}
	}
	return nil
}

// Encode serializes the payload to compact JSON with no extraneous whitespace.
func Encode(p ChunkPayload) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	// Base64 never contains <, > or &, but file names may.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a payload read from a QR symbol. Unknown fields, missing fields
// and inconsistent values are rejected.
func Decode(text []byte) (ChunkPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.DisallowUnknownFields()

	var w wirePayload
	if err := dec.Decode(&w); err != nil {
		return ChunkPayload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return ChunkPayload{}, fmt.Errorf("%w: trailing data after payload", ErrMalformed)
	}

	var missing []string
	if w.ChunkNumber == nil {
		missing = append(missing, "chunkNumber")
	}
	if w.TotalChunks == nil {
		missing = append(missing, "totalChunks")
	}
	if w.Name == nil {
		missing = append(missing, "name")
	}
	if w.Data == nil {
		missing = append(missing, "data")
	}
	if len(missing) > 0 {
		return ChunkPayload{}, fmt.Errorf("%w: missing required fields %s", ErrMalformed, strings.Join(missing, ", "))
	}

	p := ChunkPayload{
		ChunkNumber: *w.ChunkNumber,
		TotalChunks: *w.TotalChunks,
		Name:        *w.Name,
		Data:        *w.Data,
	}
	if err := p.Validate(); err != nil {
		return ChunkPayload{}, err
	}
	return p, nil
}
