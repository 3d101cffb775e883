package qrimage

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when a file cannot be decoded as an image
var ErrNotImage = errors.New("file is not a readable image")

// Scanner finds every QR symbol in an image file
type Scanner struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewScanner creates a Scanner that tries hard to locate symbols.
func NewScanner() *Scanner {
	return &Scanner{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Scan returns the text of each QR symbol found at path. An image with no
// symbols yields an empty slice and no error.
func (s *Scanner) Scan(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotImage, path, err)
	}

	return s.ScanImage(img)
}

// ScanImage returns the text of each QR symbol found in img.
func (s *Scanner) ScanImage(img image.Image) ([]string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(flatten(img))
	if err != nil {
		return nil, fmt.Errorf("failed to binarize image: %w", err)
	}

	var texts []string
	results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, s.hints)
	if err == nil {
		for _, r := range results {
			texts = append(texts, r.GetText())
		}
	}
	if len(texts) > 0 {
		return texts, nil
	}

	// The multi detector misses some symbols the single reader finds.
	result, err := zxqr.NewQRCodeReader().Decode(bmp, s.hints)
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to decode QR code: %w", err)
	}
	return []string{result.GetText()}, nil
}

// flatten composites img onto an opaque white background. Transparent pixels
// would otherwise read as black during luminance conversion.
func flatten(img image.Image) image.Image {
	if isOpaque(img) {
		return img
	}

	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func isNotFound(err error) bool {
	var nf gozxing.NotFoundException
	return errors.As(err, &nf)
}
