// Package uploads stores user files on local disk and serves them back.
//
// Files land under <root>/<category>/YYYY/MM/<uuid8>-<sanitized name> and are
// addressed by the slash-separated path relative to root. URL maps that path
// to the public prefix the router mounts Handler on.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoFile      = errors.New("no file uploaded")
	ErrTooLarge    = errors.New("file too large")
	ErrBadFileType = errors.New("file type not allowed")
)

// Store is a local-disk file store.
type Store struct {
	root      string
	urlPrefix string
	now       func() time.Time
}

// Saved describes a stored file.
type Saved struct {
	Path        string // relative to the store root, slash separated
	URL         string
	FileName    string // original client name
	ContentType string
	Size        int64
}

// NewLocal returns a store rooted at dir, creating it if needed. urlPrefix
// is the public path files are served from (for example "/uploads").
func NewLocal(dir, urlPrefix string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		root:      dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		now:       time.Now,
	}, nil
}

// Root returns the directory files are written to.
func (s *Store) Root() string { return s.root }

// URL returns the public URL of a stored path.
func (s *Store) URL(p string) string { return s.urlPrefix + "/" + strings.TrimPrefix(p, "/") }

// Save copies r into a new unique file under category.
func (s *Store) Save(category, filename string, r io.Reader, contentType string) (Saved, error) {
	now := s.now().UTC()
	rel := path.Join(
		category,
		fmt.Sprintf("%04d/%02d", now.Year(), now.Month()),
		uuid.New().String()[:8]+"-"+SanitizeFilename(filename),
	)

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Saved{}, fmt.Errorf("create upload subdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return Saved{}, fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return Saved{}, fmt.Errorf("write upload file: %w", err)
	}

	return Saved{
		Path:        rel,
		URL:         s.URL(rel),
		FileName:    filename,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(p string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path.Clean("/" + p))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Receive reads the multipart field from r, checks the extension against
// allowed and stores it under category. The body is capped at maxBytes.
func (s *Store) Receive(w http.ResponseWriter, r *http.Request, field, category string, allowed map[string]bool, maxBytes int64) (Saved, error) {
	file, hdr, err := FormFile(w, r, field, maxBytes)
	if err != nil {
		return Saved{}, err
	}
	defer file.Close()

	if !allowed[Ext(hdr.Filename)] {
		return Saved{}, ErrBadFileType
	}
	return s.Save(category, hdr.Filename, file, hdr.Header.Get("Content-Type"))
}

// FormFile parses a multipart body capped at maxBytes and returns field.
// It maps an oversized body to ErrTooLarge and a missing part to ErrNoFile.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, nil, ErrTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, nil, ErrNoFile
		}
		return nil, nil, fmt.Errorf("parse multipart: %w", err)
	}
	file, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, ErrNoFile
		}
		return nil, nil, err
	}
	if hdr.Size > maxBytes {
		file.Close()
		return nil, nil, ErrTooLarge
	}
	return file, hdr, nil
}

// Handler serves stored files. Directory listings are refused.
func (s *Store) Handler() http.Handler {
	fs := http.StripPrefix(s.urlPrefix, http.FileServer(http.Dir(s.root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// Ext returns the lowercased extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// SanitizeFilename keeps letters, digits, '-', '_' and '.', replaces
// everything else with '_' and caps the result at 100 bytes, preserving
// a short extension.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	out := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}

	if len(out) == 0 {
		return "file"
	}
	if len(out) > 100 {
		ext := filepath.Ext(string(out))
		if len(ext) > 0 && len(ext) < 10 {
			out = append(out[:100-len(ext)], ext...)
		} else {
			out = out[:100]
		}
	}
	return string(out)
}

// Spool copies src into a new temporary file and returns its path with a
// cleanup func that removes it. Cleanup ignores removal errors and is safe
// to call more than once.
func Spool(src io.Reader, pattern string) (tmpPath string, cleanup func(), err error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", func() {}, err
	}
	tmpPath = f.Name()
	cleanup = func() { _ = os.Remove(tmpPath) }

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return tmpPath, cleanup, nil
}
