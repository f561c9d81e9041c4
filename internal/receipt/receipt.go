// Package receipt stores uploaded receipt files and turns receipt images into
// expense drafts.
package receipt

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/spf13/afero"
)

const DefaultMaxBytes int64 = 5 << 20

var extensions = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"application/pdf": {".pdf"},
}

var (
	ErrInvalidReceipt = internal.NewValidationFieldError("receipt",
		"receipt must be a JPEG, PNG or PDF file", internal.ErrCodeInvalidReceipt)
	ErrEmptyReceipt = internal.NewValidationFieldError("receipt",
		"receipt file is empty", internal.ErrCodeInvalidReceipt)
)

// Upload is a receipt file as received from the client.
type Upload struct {
	OriginalName string
	DeclaredType string
	Data         []byte
}

// Stored describes a receipt file written to storage.
type Stored struct {
	Filename     string
	OriginalName string
	MimeType     string
	Path         string
	Size         int64
}

// DetectMIME sniffs data and falls back to the declared type when sniffing is
// inconclusive. The result is one of the accepted types or "".
func DetectMIME(data []byte, declared string) string {
	sniffed := normalizeType(http.DetectContentType(data))
	if _, ok := extensions[sniffed]; ok {
		return sniffed
	}
	if fallback := normalizeType(declared); fallback != "" {
		if _, ok := extensions[fallback]; ok && sniffed == "application/octet-stream" {
			return fallback
		}
	}
	return ""
}

func normalizeType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return "image/jpeg"
	}
	return mediaType
}

type Storage struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
	now      func() time.Time
	random   io.Reader
}

func NewStorage(fs afero.Fs, dir string, maxBytes int64) *Storage {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if dir == "" {
		dir = "uploads"
	}
	return &Storage{fs: fs, dir: dir, maxBytes: maxBytes, now: time.Now, random: rand.Reader}
}

func (s *Storage) MaxBytes() int64 { return s.maxBytes }

// TooLarge is returned for uploads over the configured limit.
func (s *Storage) TooLarge() *internal.AppError {
	return TooLargeError(s.maxBytes)
}

func TooLargeError(maxBytes int64) *internal.AppError {
	return internal.NewValidationFieldError("receipt",
		fmt.Sprintf("receipt must be at most %d bytes", maxBytes), internal.ErrCodeReceiptTooLarge)
}

// Validate checks size and type and returns the detected MIME type.
func (s *Storage) Validate(u *Upload) (string, error) {
	if u == nil || len(u.Data) == 0 {
		return "", ErrEmptyReceipt
	}
	if int64(len(u.Data)) > s.maxBytes {
		return "", s.TooLarge()
	}
	mimeType := DetectMIME(u.Data, u.DeclaredType)
	if mimeType == "" {
		return "", ErrInvalidReceipt
	}
	return mimeType, nil
}

// Save validates u and writes it as <unix-millis>_<random><ext> under the
// receipt directory.
func (s *Storage) Save(_ context.Context, u *Upload) (*Stored, error) {
	mimeType, err := s.Validate(u)
	if err != nil {
		return nil, err
	}

	suffix := make([]byte, 6)
	if _, err := io.ReadFull(s.random, suffix); err != nil {
		return nil, internal.NewInternalError("failed to name receipt", err)
	}
	filename := fmt.Sprintf("%d_%s%s", s.now().UnixMilli(), hex.EncodeToString(suffix), extensionFor(mimeType, u.OriginalName))

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, internal.NewInternalError("failed to prepare receipt storage", err)
	}
	fullPath := filepath.Join(s.dir, filename)
	if err := afero.WriteFile(s.fs, fullPath, u.Data, 0o644); err != nil {
		return nil, internal.NewInternalError("failed to store receipt", err)
	}

	return &Stored{
		Filename:     filename,
		OriginalName: sanitizeName(u.OriginalName),
		MimeType:     mimeType,
		Path:         fullPath,
		Size:         int64(len(u.Data)),
	}, nil
}

func (s *Storage) ReadFile(p string) ([]byte, error) {
	return afero.ReadFile(s.fs, p)
}

// Remove deletes a stored receipt. A file that is already gone is not an error.
func (s *Storage) Remove(p string) error {
	if p == "" {
		return nil
	}
	err := s.fs.Remove(p)
	if err != nil {
		if exists, _ := afero.Exists(s.fs, p); !exists {
			return nil
		}
	}
	return err
}

// extensionFor keeps the client's extension when it agrees with the sniffed type.
func extensionFor(mimeType, originalName string) string {
	allowed := extensions[mimeType]
	ext := strings.ToLower(path.Ext(originalName))
	for _, a := range allowed {
		if a == ext {
			return ext
		}
	}
	return allowed[0]
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Join(strings.Fields(name), "_")
}
