package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	PhotoWidth  = 240
	PhotoHeight = 300

	// maxSourcePixels rejects images whose header claims absurd dimensions
	// before any pixel data is decoded.
	maxSourcePixels = 40_000_000
)

var errUnsupportedPhoto = errors.New("unsupported photo format")

// FitPhoto decodes a jpeg, png or webp photo and crops it to the card's
// portrait frame, returning PNG bytes.
func FitPhoto(raw []byte) ([]byte, error) {
	img, err := decodePhoto(raw)
	if err != nil {
		return nil, err
	}
	fitted := imaging.Fill(img, PhotoWidth, PhotoHeight, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePhoto(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty photo")
	}
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)

	var cfg image.Config
	var err error
	switch {
	case strings.Contains(ct, "jpeg"):
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(raw))
	case strings.Contains(ct, "png"):
		cfg, err = png.DecodeConfig(bytes.NewReader(raw))
	case strings.Contains(ct, "webp"):
		cfg, err = webp.DecodeConfig(bytes.NewReader(raw))
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedPhoto, ct)
	}
	if err != nil {
		return nil, fmt.Errorf("read photo header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("photo dimensions %dx%d out of range", cfg.Width, cfg.Height)
	}

	var img image.Image
	switch {
	case strings.Contains(ct, "jpeg"):
		img, err = jpeg.Decode(bytes.NewReader(raw))
	case strings.Contains(ct, "png"):
		img, err = png.Decode(bytes.NewReader(raw))
	default:
		img, err = webp.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}

var (
	placeholderOnce sync.Once
	placeholderPNG  []byte
)

// PlaceholderPhoto is a neutral silhouette used when no photo can be shown.
func PlaceholderPhoto() []byte {
	placeholderOnce.Do(func() {
		img := imaging.New(PhotoWidth, PhotoHeight, color.NRGBA{R: 0xdd, G: 0xe3, B: 0xea, A: 0xff})
		figure := color.NRGBA{R: 0x9a, G: 0xa5, B: 0xb1, A: 0xff}

		// head
		cx, cy, r := PhotoWidth/2, PhotoHeight*2/5, PhotoWidth/5
		for y := cy - r; y <= cy+r; y++ {
			for x := cx - r; x <= cx+r; x++ {
				dx, dy := x-cx, y-cy
				if dx*dx+dy*dy <= r*r {
					img.SetNRGBA(x, y, figure)
				}
			}
		}
		// shoulders
		top := cy + r + 12
		for y := top; y < PhotoHeight; y++ {
			half := PhotoWidth/4 + (y-top)*2/3
			for x := cx - half; x <= cx+half; x++ {
				if x >= 0 && x < PhotoWidth {
					img.SetNRGBA(x, y, figure)
				}
			}
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			panic(fmt.Sprintf("encode placeholder photo: %v", err))
		}
		placeholderPNG = buf.Bytes()
	})
	return placeholderPNG
}
