// Package blobstore stores report attachments. Every stored file gets a
// generated name of 32 hex characters, an underscore and the sanitised
// original base name; only that generated name is ever recorded elsewhere.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrBlobNotFound     = errors.New("file not found")
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrInvalidExtension = errors.New("file type is not allowed")
	ErrMissingFileName  = errors.New("file name is required")
	ErrInvalidName      = errors.New("invalid file name")
)

// DefaultMaxSize is used when a store is built with a non-positive limit.
const DefaultMaxSize = 16 << 20

// AllowedExtensions maps accepted report extensions to their content type.
var AllowedExtensions = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

var generatedName = regexp.MustCompile(`^[0-9a-f]{32}_[A-Za-z0-9._-]+$`)

// BlobInfo describes a stored file.
type BlobInfo struct {
	Name        string    `json:"name"`
	Original    string    `json:"original_name,omitempty"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlobStore interface {
	Put(ctx context.Context, originalName string, content io.Reader) (*BlobInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, *BlobInfo, error)
	Delete(ctx context.Context, name string) error
}

// SanitizeFilename reduces name to a safe base name: path components are
// dropped, accents are stripped, whitespace becomes "_" and anything outside
// [A-Za-z0-9._-] is removed. Leading dots and underscores are trimmed.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '.' || r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), "_")
	return strings.TrimLeft(out, "._")
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ValidName reports whether name has the shape of a generated blob name.
func ValidName(name string) bool {
	return generatedName.MatchString(name) && !strings.Contains(name, "..")
}

// prepare validates an upload and returns its generated name and content type.
func prepare(originalName string) (string, string, error) {
	if strings.TrimSpace(originalName) == "" {
		return "", "", ErrMissingFileName
	}
	safe := SanitizeFilename(originalName)
	if safe == "" {
		return "", "", ErrInvalidName
	}
	contentType, ok := AllowedExtensions[Extension(safe)]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidExtension, Extension(safe))
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + safe, contentType, nil
}

func readLimited(content io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func newInfo(name, original, contentType string, data []byte) *BlobInfo {
	h := sha256.Sum256(data)
	return &BlobInfo{
		Name:        name,
		Original:    original,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        hex.EncodeToString(h[:]),
		CreatedAt:   time.Now().UTC(),
	}
}

// ---------------------------------------------------------------------------
// Filesystem implementation
// ---------------------------------------------------------------------------

// FSBlobStore keeps files in a single upload directory.
type FSBlobStore struct {
	dir     string
	maxSize int64
}

func NewFSBlobStore(dir string, maxSize int64) (*FSBlobStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FSBlobStore{dir: dir, maxSize: maxSize}, nil
}

func (s *FSBlobStore) Put(ctx context.Context, originalName string, content io.Reader) (*BlobInfo, error) {
	name, contentType, err := prepare(originalName)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(content, s.maxSize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	return newInfo(name, originalName, contentType, data), nil
}

func (s *FSBlobStore) Open(_ context.Context, name string) (io.ReadCloser, *BlobInfo, error) {
	if !ValidName(name) {
		return nil, nil, ErrBlobNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}
	info := &BlobInfo{
		Name:        name,
		ContentType: contentTypeOf(name),
		Size:        st.Size(),
		CreatedAt:   st.ModTime().UTC(),
	}
	return f, info, nil
}

func (s *FSBlobStore) Delete(_ context.Context, name string) error {
	if !ValidName(name) {
		return ErrBlobNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrBlobNotFound
	}
	return err
}

func contentTypeOf(name string) string {
	if ct, ok := AllowedExtensions[Extension(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedBlob struct {
	info    BlobInfo
	content []byte
}

// InMemoryBlobStore is a thread-safe BlobStore for tests.
type InMemoryBlobStore struct {
	mu      sync.RWMutex
	blobs   map[string]*storedBlob
	maxSize int64
}

func NewInMemoryBlobStore(maxSize int64) *InMemoryBlobStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &InMemoryBlobStore{blobs: make(map[string]*storedBlob), maxSize: maxSize}
}

func (s *InMemoryBlobStore) Put(_ context.Context, originalName string, content io.Reader) (*BlobInfo, error) {
	name, contentType, err := prepare(originalName)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(content, s.maxSize)
	if err != nil {
		return nil, err
	}
	info := newInfo(name, originalName, contentType, data)

	s.mu.Lock()
	s.blobs[name] = &storedBlob{info: *info, content: data}
	s.mu.Unlock()

	out := *info
	return &out, nil
}

func (s *InMemoryBlobStore) Open(_ context.Context, name string) (io.ReadCloser, *BlobInfo, error) {
	s.mu.RLock()
	blob, ok := s.blobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	info := blob.info
	return io.NopCloser(bytes.NewReader(blob.content)), &info, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[name]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, name)
	return nil
}

func (s *InMemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// Serve streams the named blob as an attachment. Access control is the
// caller's job.
func Serve(c echo.Context, store BlobStore, name string) error {
	rc, info, err := store.Open(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, info.Name))
	return c.Stream(http.StatusOK, info.ContentType, rc)
}

// HTTPError maps upload errors to HTTP status codes.
func HTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrInvalidExtension):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ErrMissingFileName), errors.Is(err, ErrInvalidName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
