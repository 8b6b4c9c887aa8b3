package forms

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned when an upload is not a recognised image.
var ErrNotImage = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")

// Image is an uploaded file that passed content sniffing.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadImage loads an uploaded file and checks it is an image no larger than maxBytes.
func ReadImage(fh *multipart.FileHeader, maxBytes int64) (*Image, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, fmt.Errorf("image exceeds %d MB", maxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	limit := maxBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds %d MB", limit>>20)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}
	return &Image{
		Name:        cleanName(fh.Filename, mt.Extension()),
		ContentType: mt.String(),
		Data:        data,
	}, nil
}

func cleanName(name, ext string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, base)
	if base == "" || base == "." || strings.HasPrefix(base, ".") {
		base = "image" + ext
	}
	if filepath.Ext(base) == "" {
		base += ext
	}
	return base
}
