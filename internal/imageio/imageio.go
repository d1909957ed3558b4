// Package imageio decodes input pictures and encodes difference images, picking
// the output codec from the file name.
package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode accepts png, jpeg, gif, bmp, tiff and webp data and returns the
// decoded image together with its format name.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", xerrors.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Format returns the codec name implied by the extension of name.
func Format(name string) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".gif":
		return "gif", nil
	case ".bmp":
		return "bmp", nil
	case ".tif", ".tiff":
		return "tiff", nil
	default:
		return "", xerrors.Errorf("%q: %w", name, ErrUnsupportedFormat)
	}
}

func Encode(w io.Writer, img image.Image, name string) error {
	format, err := Format(name)
	if err != nil {
		return err
	}

	switch format {
	case "png":
		err = png.Encode(w, img)
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case "gif":
		err = gif.Encode(w, img, nil)
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return xerrors.Errorf("failed to encode %s image: %w", format, err)
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img image.Image, name string) ([]byte, error) {
	var buffer bytes.Buffer
	if err := Encode(&buffer, img, name); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
