package chunking

import (
	"github.com/license-fn/qrcode-file-transfer/pkg/payload"
)

// Result describes the outcome of reassembling one file
type Result struct {
	Name     string
	Complete bool
	Chunks   int   // Number of chunks the file was split into
	Missing  []int // Unfilled chunk numbers, nil when complete
	Data     []byte
	Err      error // Set when a complete set fails to decode
}

// Reassembler groups chunks by file name across any number of images.
type Reassembler struct {
	files map[string]*FileAssembly
	order []string
}

// NewReassembler creates an empty Reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{
		files: make(map[string]*FileAssembly),
	}
}

// Add routes a chunk to the assembly for its name, creating the assembly on
// first sight. It reports whether the chunk replaced an earlier one.
func (r *Reassembler) Add(p payload.ChunkPayload) (duplicate bool, err error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	a, ok := r.files[p.Name]
	if !ok {
		a = NewFileAssembly(p)
		r.files[p.Name] = a
		r.order = append(r.order, p.Name)
	}

	return a.Insert(p)
}

// Results checks every file for completeness and decodes the complete ones.
func (r *Reassembler) Results() []Result {
	results := make([]Result, 0, len(r.order))
	for _, name := range r.order {
		a := r.files[name]
		res := Result{
			Name:   name,
			Chunks: a.Len(),
		}

		if !a.Complete() {
			res.Missing = a.Missing()
			results = append(results, res)
			continue
		}

		res.Complete = true
		res.Data, res.Err = a.Bytes()
		results = append(results, res)
	}
	return results
}
