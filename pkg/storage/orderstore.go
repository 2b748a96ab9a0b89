package storage

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// OrderStore persists deliverable files on disk, one directory per order.
type OrderStore struct {
	baseDir string
}

// NewOrderStore ensures the base directory exists and returns a handle.
func NewOrderStore(baseDir string) (*OrderStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &OrderStore{baseDir: baseDir}, nil
}

// Dir returns the directory holding an order's files.
func (s *OrderStore) Dir(orderID string) string {
	return filepath.Join(s.baseDir, "order_"+orderID)
}

// Save writes an uploaded file into the order directory. The filename is
// sanitized and suffixed with a counter when a same-named file already
// exists. Returns the stored name.
func (s *OrderStore) Save(orderID, filename string, r io.Reader) (string, error) {
	dir := s.Dir(orderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare order directory: %w", err)
	}

	name := s.dedupe(dir, SanitizeFilename(filename))
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create order file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write order file: %w", err)
	}
	return name, nil
}

// SaveBytes writes generated content into the order directory under the
// given name, overwriting a previous copy.
func (s *OrderStore) SaveBytes(orderID, filename string, data []byte) (string, error) {
	dir := s.Dir(orderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare order directory: %w", err)
	}
	name := SanitizeFilename(filename)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write order file: %w", err)
	}
	return name, nil
}

// Exists reports whether the named file is present on disk for the order.
func (s *OrderStore) Exists(orderID, filename string) bool {
	info, err := os.Stat(filepath.Join(s.Dir(orderID), filepath.Base(filename)))
	return err == nil && !info.IsDir()
}

// Open returns a read-only handle for a stored file.
func (s *OrderStore) Open(orderID, filename string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.Dir(orderID), filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("open order file: %w", err)
	}
	return file, nil
}

// Path resolves the absolute path of a stored file.
func (s *OrderStore) Path(orderID, filename string) string {
	return filepath.Join(s.Dir(orderID), filepath.Base(filename))
}

// ZipToTemp bundles the listed files that exist on disk into a temporary zip
// archive. Missing files are silently skipped. The caller removes the
// archive once it has been streamed.
func (s *OrderStore) ZipToTemp(orderID string, files []string) (string, []string, error) {
	tmp, err := os.CreateTemp("", "order-*.zip")
	if err != nil {
		return "", nil, fmt.Errorf("create temp archive: %w", err)
	}
	defer tmp.Close() //nolint:errcheck

	zw := zip.NewWriter(tmp)
	included := make([]string, 0, len(files))
	for _, filename := range files {
		path := s.Path(orderID, filename)
		src, err := os.Open(path)
		if err != nil {
			continue
		}
		entry, err := zw.Create(filepath.Base(filename))
		if err != nil {
			src.Close() //nolint:errcheck
			zw.Close()  //nolint:errcheck
			os.Remove(tmp.Name())
			return "", nil, fmt.Errorf("add archive entry: %w", err)
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close() //nolint:errcheck
			zw.Close()  //nolint:errcheck
			os.Remove(tmp.Name())
			return "", nil, fmt.Errorf("write archive entry: %w", err)
		}
		src.Close() //nolint:errcheck
		included = append(included, filename)
	}
	if err := zw.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("finalize archive: %w", err)
	}
	return tmp.Name(), included, nil
}

// dedupe appends a counter before the extension until the name is free.
func (s *OrderStore) dedupe(dir, name string) string {
	candidate := name
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

// SanitizeFilename reduces a client-supplied name to a safe subset: letters,
// digits, dot, dash, underscore and space. Path components are stripped.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_' || r == ' ' || r == '(' || r == ')':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "file"
	}
	return cleaned
}

// SanitizeTitle keeps only characters safe for an archive name.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	runes := []rune(cleaned)
	if len(runes) > 30 {
		cleaned = string(runes[:30])
	}
	return strings.TrimSpace(cleaned)
}

// contentTypes maps known extensions to response media types.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".zip":  "application/zip",
	".rar":  "application/vnd.rar",
	".7z":   "application/x-7z-compressed",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".csv":  "text/csv; charset=utf-8",
}

// ContentTypeFor picks a media type by file extension.
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
