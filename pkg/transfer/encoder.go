package transfer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/btcsuite/btclog"

	"github.com/license-fn/qrcode-file-transfer/pkg/chunking"
	"github.com/license-fn/qrcode-file-transfer/pkg/dirguard"
	"github.com/license-fn/qrcode-file-transfer/pkg/payload"
)

// EncodeReport describes the images written for one input file
type EncodeReport struct {
	Input  string
	Name   string
	Chunks int
	Images []string
	CID    string
}

// Encoder converts files into QR code images
type Encoder struct {
	Renderer Renderer
	Guard    Guard
	Log      btclog.Logger
	Out      io.Writer // Status messages for the user
	Budget   int       // Base64 characters per chunk
}

// NewEncoder returns an Encoder with the default chunk budget and directory
// guard.
func NewEncoder(renderer Renderer, log btclog.Logger, out io.Writer) *Encoder {
	return &Encoder{
		Renderer: renderer,
		Guard:    dirguard.Func(dirguard.Ensure),
		Log:      log,
		Out:      out,
		Budget:   chunking.DefaultChunkBudget,
	}
}

// ImageName returns the file name used for chunk index of name.
func ImageName(name string, index int) string {
	return fmt.Sprintf("%s_q%d.png", name, index)
}

// EncodeFiles encodes each input in turn. A file that cannot be read or
// rendered is reported and skipped; an unusable output directory stops the
// whole run.
func (e *Encoder) EncodeFiles(inputs []string, outputDir string) ([]*EncodeReport, error) {
	if err := e.ensureOutput(outputDir); err != nil {
		return nil, err
	}

	var reports []*EncodeReport
	for _, input := range inputs {
		e.logger().Debugf("Encoding %s...", input)
		report, err := e.encode(input, outputDir)
		if err != nil {
			e.reportFailure(input, err)
			continue
		}
		reports = append(reports, report)
		e.logger().Debugf("Done")
	}
	return reports, nil
}

// EncodeFile writes the QR images for a single file into outputDir.
func (e *Encoder) EncodeFile(input, outputDir string) (*EncodeReport, error) {
	if err := e.ensureOutput(outputDir); err != nil {
		return nil, err
	}
	return e.encode(input, outputDir)
}

func (e *Encoder) encode(input, outputDir string) (*EncodeReport, error) {
	budget := e.Budget
	if budget == 0 {
		budget = chunking.DefaultChunkBudget
	}
	chunks, data, err := chunking.SplitFile(input, budget)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, &InputError{Path: input, Err: pathErr}
		}
		return nil, err
	}

	name := filepath.Base(input)
	log := e.logger()
	e.printf("Encoding file %s...\n", name)
	log.Debugf("b64_data_len: %d", base64.StdEncoding.EncodedLen(len(data)))
	log.Debugf("num_chunks: %d", len(chunks))
	log.Debugf("input_file_name: %s", name)

	report := &EncodeReport{
		Input:  input,
		Name:   name,
		Chunks: len(chunks),
	}
	if report.CID, err = ContentID(data); err != nil {
		return nil, err
	}

	for _, chunk := range chunks {
		text, err := payload.Encode(chunk)
		if err != nil {
			return nil, err
		}

		start := chunk.ChunkNumber * budget
		imagePath := filepath.Join(outputDir, ImageName(name, chunk.ChunkNumber))
		log.Debugf("chunk %d/%d: start_index %d, end_index %d, json length %d, qr_file %s",
			chunk.ChunkNumber, chunk.TotalChunks, start, start+len(chunk.Data), len(text), imagePath)

		if err := e.Renderer.Render(imagePath, text); err != nil {
			return nil, fmt.Errorf("failed to render chunk %d of %s: %w", chunk.ChunkNumber, name, err)
		}
		report.Images = append(report.Images, imagePath)
	}

	e.printf("Encoded file %s in %d QR codes.\n", name, len(chunks))
	log.Infof("Encoded %s (%s) into %d images", name, report.CID, len(chunks))
	return report, nil
}

func (e *Encoder) ensureOutput(outputDir string) error {
	guard := e.Guard
	if guard == nil {
		guard = dirguard.Func(dirguard.Ensure)
	}
	if err := guard.Ensure(outputDir); err != nil {
		e.printf("Unable to use output directory %s. More info below:\n\t%v\n", outputDir, err)
		e.logger().Debugf("Failed to create output directory: %s", outputDir)
		return &OutputDirError{Path: outputDir, Err: err}
	}
	return nil
}

func (e *Encoder) reportFailure(input string, err error) {
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		e.printf("Unable to read input file %s. More info below:\n\t%v\n", input, inputErr.Err)
	} else {
		e.printf("Unable to encode file %s. More info below:\n\t%v\n", input, err)
	}
	e.logger().Debugf("Encoding %s failed: %v", input, err)
}

func (e *Encoder) printf(format string, args ...interface{}) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

func (e *Encoder) logger() btclog.Logger {
	if e.Log == nil {
		return btclog.Disabled
	}
	return e.Log
}
