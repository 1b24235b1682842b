// pkg/imaging/imaging.go
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

var ErrEmptyImage = errors.New("image is empty")

// allowedTypes are the formats the inference server can decode.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

var tiffMagic = [][]byte{[]byte("II*\x00"), []byte("MM\x00*")}

// DetectImageType sniffs data and returns its content type.
func DetectImageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType := http.DetectContentType(head)
	for _, magic := range tiffMagic {
		if bytes.HasPrefix(head, magic) {
			contentType = "image/tiff"
		}
	}

	if _, ok := allowedTypes[contentType]; !ok {
		return "", fmt.Errorf("invalid file type: %s, only JPEG, PNG, WebP, BMP and TIFF allowed", contentType)
	}
	return contentType, nil
}

// Extension returns the file extension for an upload, preferring the one in
// filename and falling back to the sniffed content type.
func Extension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tif", ".tiff":
		return ext
	}
	return allowedTypes[contentType]
}
