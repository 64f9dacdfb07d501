package printer

import (
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/clamflow-labels/internal/labels"
)

const pngDataURIPrefix = "data:image/png;base64,"

// QRRenderer renders payload text into PNG QR codes.
type QRRenderer struct {
	level qrcode.RecoveryLevel
}

// NewQRRenderer uses medium error correction, which leaves room for the
// JSON payloads labels carry.
func NewQRRenderer() *QRRenderer {
	return &QRRenderer{level: qrcode.Medium}
}

// Encode renders data as a size x size PNG on the given background.
func (r *QRRenderer) Encode(data string, size int, background string) ([]byte, error) {
	if size > labels.MaxQRCodeSize {
		return nil, fmt.Errorf("%w: %d", labels.ErrQRCodeSize, size)
	}
	bg, err := ParseHexColor(background)
	if err != nil {
		return nil, err
	}
	q, err := qrcode.New(data, r.level)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	q.BackgroundColor = bg
	q.ForegroundColor = color.Black
	return q.PNG(size)
}

// Render returns the QR code as a PNG data URI.
func (r *QRRenderer) Render(ctx context.Context, data string, size int, background string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	png, err := r.Encode(data, size, background)
	if err != nil {
		return "", err
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// ParseHexColor accepts #RGB and #RRGGBB. Empty input is white.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 0:
		return color.White, nil
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return nil, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
