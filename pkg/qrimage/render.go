package qrimage

import (
	"fmt"
	"strings"

	qrencode "github.com/skip2/go-qrcode"
)

const (
	// DefaultModuleSize is the pixel width of one QR module.
	DefaultModuleSize = 10
)

// RecoveryLevel names a QR error correction level
type RecoveryLevel = qrencode.RecoveryLevel

// ParseRecoveryLevel maps low, medium, high and highest to a RecoveryLevel.
func ParseRecoveryLevel(s string) (RecoveryLevel, error) {
	switch strings.ToLower(s) {
	case "low", "l":
		return qrencode.Low, nil
	case "", "medium", "m":
		return qrencode.Medium, nil
	case "high", "q":
		return qrencode.High, nil
	case "highest", "h":
		return qrencode.Highest, nil
	default:
		return qrencode.Medium, fmt.Errorf("unknown recovery level %q", s)
	}
}

// Renderer writes payload text as a PNG QR code
type Renderer struct {
	Level      RecoveryLevel
	ModuleSize int
}

// NewRenderer returns a Renderer with medium recovery and 10 pixel modules.
func NewRenderer() *Renderer {
	return &Renderer{
		Level:      qrencode.Medium,
		ModuleSize: DefaultModuleSize,
	}
}

// Render encodes text into a single QR symbol and writes it to path as PNG.
func (r *Renderer) Render(path string, text []byte) error {
	q, err := qrencode.New(string(text), r.Level)
	if err != nil {
		return fmt.Errorf("failed to encode QR code for %s: %w", path, err)
	}

	moduleSize := r.ModuleSize
	if moduleSize < 1 {
		moduleSize = DefaultModuleSize
	}

	// A negative size asks for a fixed number of pixels per module.
	if err := q.WriteFile(-moduleSize, path); err != nil {
		return fmt.Errorf("failed to write QR image %s: %w", path, err)
	}
	return nil
}
