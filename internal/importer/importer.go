package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Parser converts a bank CSV export into Records.
type Parser interface {
	Parse(r io.Reader) (*Batch, error)
	Format() string
}

// Batch is the outcome of parsing one file.
type Batch struct {
	Records  []Record
	Rejected []*ParseError
}

// SetSource stamps every record and rejection with the file it came from.
func (b *Batch) SetSource(name string) {
	for i := range b.Records {
		b.Records[i].Source = name
	}
	for _, r := range b.Rejected {
		r.Source = name
	}
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file to import.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&INGParser{})
	return r
}

// Scan resolves path to the CSV files to import: the file itself when path
// is a .csv file, or every .csv file directly inside path when it is a
// directory. Files are returned sorted by name.
func Scan(path string) ([]FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading input path: %w", err)
	}

	if !info.IsDir() {
		if !isCSV(info.Name()) {
			return nil, fmt.Errorf("input %s is not a .csv file", path)
		}
		return []FileInfo{{Name: info.Name(), Path: path, Size: info.Size()}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading input dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(path, e.Name()),
			Size: fi.Size(),
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("directory %s contains no .csv files", path)
	}
	return files, nil
}

func isCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}
