package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// ErrUnsupportedFormat is returned for files no registered decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Decoder converts a spreadsheet file into raw worksheets.
type Decoder interface {
	Decode(r io.Reader) ([]model.RawSheet, error)
	Format() string
	Extensions() []string
}

// Registry holds decoders by format name and file extension.
type Registry struct {
	decoders map[string]Decoder
	byExt    map[string]Decoder
}

// FileInfo describes a statement file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
		byExt:    make(map[string]Decoder),
	}
}

// Register adds a decoder. Panics on duplicate format or extension.
func (r *Registry) Register(d Decoder) {
	key := strings.ToLower(d.Format())
	if _, ok := r.decoders[key]; ok {
		panic("duplicate decoder format: " + key)
	}
	r.decoders[key] = d
	for _, ext := range d.Extensions() {
		ext = strings.ToLower(ext)
		if _, ok := r.byExt[ext]; ok {
			panic("duplicate decoder extension: " + ext)
		}
		r.byExt[ext] = d
	}
}

// ForFile returns the decoder for a file name based on its extension.
func (r *Registry) ForFile(name string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(name))
	d, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(name))
	}
	return d, nil
}

// Supports reports whether some decoder handles name.
func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// DefaultRegistry returns a registry with all built-in decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXDecoder{})
	r.Register(&XLSDecoder{})
	r.Register(&CSVDecoder{})
	return r
}

// ImportDir is the subdirectory scanned for new statements.
const ImportDir = "import"

// ProcessedDir is the subdirectory holding ingested statements.
const ProcessedDir = "import/processed"

// Scan returns the statement files in <root>/import/ that reg can decode.
func Scan(root string, reg *Registry) ([]FileInfo, error) {
	dir := filepath.Join(root, ImportDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		if !reg.Supports(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, ImportDir, fileName)
	dstDir := filepath.Join(root, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
