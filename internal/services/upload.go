// internal/services/upload.go
package services

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"beef-back/internal/apperrors"
	"beef-back/pkg/imaging"
)

// Upload is an image read into memory exactly once. Every consumer shares the
// same bytes, so no analysis call ever sees a drained stream.
type Upload struct {
	data        []byte
	filename    string
	contentType string
}

// ReadUpload drains r (at most maxBytes) and validates the result as an image.
func ReadUpload(r io.Reader, filename string, maxBytes int64) (*Upload, error) {
	if r == nil {
		return nil, apperrors.Validation("no file uploaded")
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.Validation(fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}
	return NewUpload(data, filename)
}

// NewUpload validates data and takes ownership of it; the caller must not
// modify data afterwards.
func NewUpload(data []byte, filename string) (*Upload, error) {
	contentType, err := imaging.DetectImageType(data)
	if errors.Is(err, imaging.ErrEmptyImage) {
		return nil, apperrors.Validation("uploaded file is empty")
	}
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	filename = filepath.Base(filename)
	if filename == "." || filename == "/" {
		filename = "upload" + imaging.Extension("", contentType)
	}
	return &Upload{data: data, filename: filename, contentType: contentType}, nil
}

// Bytes returns the image. Read only.
func (u *Upload) Bytes() []byte { return u.data }

func (u *Upload) Filename() string { return u.filename }

func (u *Upload) ContentType() string { return u.contentType }

func (u *Upload) Size() int { return len(u.data) }
