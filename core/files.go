package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var (
	ErrFileNotFound = NewNotFoundError("archivo no encontrado")

	fileExtensions = map[string]string{
		MimePDF:  ".pdf",
		MimeJPEG: ".jpg",
		MimePNG:  ".png",
	}
)

// FileStore persists uploaded files under opaque keys.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a file received from a client, not yet persisted.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string // as declared by the client
	Content     io.Reader

	sniffed string
}

// Check enforces the size ceiling and the allowed content types (declared and sniffed).
// It must be called before anything is written.
func (u *Upload) Check(maxSize int64, allowed ...string) error {
	fieldErr := func(msg string) error {
		return NewValidationError(nil, FieldError{Field: "archivo", Error: msg})
	}
	if u == nil || u.Content == nil {
		return fieldErr("archivo es obligatorio")
	}
	if u.Size > maxSize {
		return fieldErr(fmt.Sprintf("el archivo excede el tamaño máximo de %d MB", maxSize>>20))
	}

	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(u.ContentType, ";", 2)[0]))
	if !contains(allowed, declared) {
		return fieldErr("tipo de archivo no permitido: " + allowedNames(allowed))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(u.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "reading upload header")
	}
	head = head[:n]
	u.sniffed = http.DetectContentType(head)
	u.Content = io.MultiReader(bytes.NewReader(head), u.Content)
	if !contains(allowed, u.sniffed) {
		return fieldErr("el contenido del archivo no corresponde a un tipo permitido: " + allowedNames(allowed))
	}
	return nil
}

// NewKey returns a unique storage key under dir carrying the extension of the upload's type.
func (u *Upload) NewKey(dir string) string {
	ext, ok := fileExtensions[u.sniffed]
	if !ok {
		ext = strings.ToLower(filepath.Ext(u.Filename))
	}
	return path.Join(dir, uuid.New().String()+ext)
}

// OriginalName returns the base name of the client file.
func (u *Upload) OriginalName() string {
	return filepath.Base(u.Filename)
}

func contains(ss []string, s string) bool {
	for _, item := range ss {
		if item == s {
			return true
		}
	}
	return false
}

func allowedNames(allowed []string) string {
	names := make([]string, 0, len(allowed))
	for _, mime := range allowed {
		names = append(names, strings.ToUpper(strings.TrimPrefix(fileExtensions[mime], ".")))
	}
	return strings.Join(names, ", ")
}
