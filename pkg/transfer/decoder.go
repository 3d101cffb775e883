package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"

	"github.com/license-fn/qrcode-file-transfer/pkg/chunking"
	"github.com/license-fn/qrcode-file-transfer/pkg/dirguard"
	"github.com/license-fn/qrcode-file-transfer/pkg/payload"
	"github.com/license-fn/qrcode-file-transfer/pkg/qrimage"
)

// FileReport is the outcome for one reassembled file name
type FileReport struct {
	Name     string
	Path     string // Where the file was written, empty unless recovered
	Complete bool
	Chunks   int
	Missing  []int
	Size     int
	CID      string
	Err      error // Decode or write failure of a complete set
}

// Recovered reports whether the file was written.
func (r FileReport) Recovered() bool {
	return r.Complete && r.Err == nil
}

// DecodeReport summarizes a reconstruction run
type DecodeReport struct {
	Files    []FileReport
	Skipped  []string // Images that could not be scanned
	Payloads int      // Payloads accepted
	Rejected int      // Payloads dropped as malformed or inconsistent
}

// Decoder reconstructs files from QR code images
type Decoder struct {
	Scanner Scanner
	Guard   Guard
	Log     btclog.Logger
	Out     io.Writer
	Prefix  string // Prepended to recovered file names
}

// NewDecoder returns a Decoder using the default directory guard.
func NewDecoder(scanner Scanner, log btclog.Logger, out io.Writer) *Decoder {
	return &Decoder{
		Scanner: scanner,
		Guard:   dirguard.Func(dirguard.Ensure),
		Log:     log,
		Out:     out,
	}
}

// Decode scans every image, groups the payloads by file name and writes each
// file whose chunks are all present into outputDir. Only a problem with
// outputDir is returned as an error; everything else is recorded in the
// report and the run continues.
func (d *Decoder) Decode(images []string, outputDir string) (*DecodeReport, error) {
	log := d.logger()

	guard := d.Guard
	if guard == nil {
		guard = dirguard.Func(dirguard.Ensure)
	}
	if err := guard.Ensure(outputDir); err != nil {
		d.printf("Unable to use output directory %s. More info below:\n\t%v\n", outputDir, err)
		log.Debugf("Failed to create output directory: %s", outputDir)
		return nil, &OutputDirError{Path: outputDir, Err: err}
	}

	log.Debugf("Parsing %d QR files", len(images))
	report := &DecodeReport{}
	r := chunking.NewReassembler()

	for _, image := range images {
		texts, err := d.Scanner.Scan(image)
		if err != nil {
			if errors.Is(err, qrimage.ErrNotImage) {
				d.printf("File \"%s\" doesn't appear to be an image... skipping.\n", image)
			} else {
				d.printf("Unable to scan %s... skipping. More info below:\n\t%v\n", image, err)
			}
			log.Debugf("Skipping %s: %v", image, err)
			report.Skipped = append(report.Skipped, image)
			continue
		}
		log.Debugf("Found %d QR codes in file %s", len(texts), image)

		for _, text := range texts {
			d.addPayload(r, report, image, text)
		}
	}

	for _, res := range r.Results() {
		report.Files = append(report.Files, d.finish(res, outputDir))
	}
	return report, nil
}

func (d *Decoder) addPayload(r *chunking.Reassembler, report *DecodeReport, image, text string) {
	log := d.logger()

	p, err := payload.Decode([]byte(text))
	if err != nil {
		d.printf("Dropping unreadable QR payload in %s: %v\n", image, err)
		log.Debugf("Malformed payload in %s: %v", image, err)
		report.Rejected++
		return
	}

	log.Debugf("qr_file: %s", image)
	log.Debugf("\tname: %s", p.Name)
	log.Debugf("\tchunk: %d/%d", p.ChunkNumber, p.TotalChunks)

	duplicate, err := r.Add(p)
	if err != nil {
		d.printf("Dropping QR payload in %s: %v\n", image, err)
		log.Debugf("Rejected chunk %d of %s from %s: %v", p.ChunkNumber, p.Name, image, err)
		report.Rejected++
		return
	}
	if duplicate {
		log.Warnf("Chunk %d of %s seen again in %s, keeping the latest", p.ChunkNumber, p.Name, image)
	}
	report.Payloads++
}

func (d *Decoder) finish(res chunking.Result, outputDir string) FileReport {
	log := d.logger()
	fr := FileReport{
		Name:     res.Name,
		Complete: res.Complete,
		Chunks:   res.Chunks,
		Missing:  res.Missing,
	}

	log.Debugf("Analyzing data for name: %s", res.Name)
	if !res.Complete {
		d.printf("Missing QR codes %s for file: %s\n", formatIndices(res.Missing), res.Name)
		log.Debugf("Missing data for file: %s", res.Name)
		return fr
	}

	log.Debugf("All data present for file: %s", res.Name)
	if res.Err != nil {
		fr.Err = res.Err
		d.printf("Unable to decode file %s. More info below:\n\t%v\n", res.Name, res.Err)
		log.Debugf("Decoding %s failed: %v", res.Name, res.Err)
		return fr
	}

	path := filepath.Join(outputDir, d.Prefix+res.Name)
	if err := os.WriteFile(path, res.Data, 0644); err != nil {
		fr.Err = fmt.Errorf("failed to write %s: %w", path, err)
		d.printf("Unable to write decoded file %s. More info below:\n\t%v\n", path, err)
		log.Debugf("Writing %s failed: %v", path, err)
		return fr
	}

	fr.Path = path
	fr.Size = len(res.Data)
	if id, err := ContentID(res.Data); err == nil {
		fr.CID = id
	} else {
		log.Warnf("Unable to compute content identifier for %s: %v", res.Name, err)
	}

	d.printf("Successfully decoded file: %s\n", res.Name)
	log.Infof("Recovered %s (%d bytes, %s) from %d chunks", path, fr.Size, fr.CID, fr.Chunks)
	return fr
}

func (d *Decoder) printf(format string, args ...interface{}) {
	if d.Out != nil {
		fmt.Fprintf(d.Out, format, args...)
	}
}

func (d *Decoder) logger() btclog.Logger {
	if d.Log == nil {
		return btclog.Disabled
	}
	return d.Log
}
