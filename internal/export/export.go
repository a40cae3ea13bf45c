// Package export writes typed tables to files, terminals and databases.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hyperifyio/gotabular/internal/table"
)

// Exporter hands a finished table to an external consumer. name identifies
// the table (a job name) and is used for file, table or collection naming.
type Exporter interface {
	Export(ctx context.Context, name string, t *table.Typed) error
}

// DefaultNA marks missing cells in text formats.
const DefaultNA = "NA"

// Destination carries what the format-specific exporters need.
type Destination struct {
	// Dir receives one file per table for file formats. Empty means Stdout.
	Dir    string
	Stdout io.Writer
	// NA is the missing marker for text formats; empty means DefaultNA.
	NA         string
	DB         *sql.DB
	Collection *mongo.Collection
	RunID      string
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"csv", "jsonl", "pretty", "markdown", "pdf", "sqlite", "mongo"}

// ForFormat returns the exporter for format.
func ForFormat(format string, dst Destination) (Exporter, error) {
	na := dst.NA
	if na == "" {
		na = DefaultNA
	}
	stream := func(ext string, mk func(w io.Writer) Exporter) (Exporter, error) {
		if dst.Dir != "" {
			return Files{Dir: dst.Dir, Ext: ext, New: mk}, nil
		}
		if dst.Stdout == nil {
			return nil, fmt.Errorf("format %s: no output directory or stdout", format)
		}
		return mk(dst.Stdout), nil
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return stream("csv", func(w io.Writer) Exporter { return CSV{W: w, NA: na} })
	case "jsonl", "jsonlines", "ndjson":
		return stream("jsonl", func(w io.Writer) Exporter { return JSONLines{W: w} })
	case "pretty", "table", "text":
		return stream("txt", func(w io.Writer) Exporter { return Pretty{W: w, NA: na} })
	case "markdown", "md":
		return stream("md", func(w io.Writer) Exporter { return Pretty{W: w, NA: na, Markdown: true} })
	case "pdf":
		return stream("pdf", func(w io.Writer) Exporter { return PDF{W: w, NA: na} })
	case "sqlite", "sql":
		if dst.DB == nil {
			return nil, fmt.Errorf("format %s: no database", format)
		}
		return SQLite{DB: dst.DB, Replace: true, RunID: dst.RunID}, nil
	case "mongo", "mongodb":
		if dst.Collection == nil {
			return nil, fmt.Errorf("format %s: no collection", format)
		}
		return Mongo{Collection: dst.Collection, RunID: dst.RunID}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// Files writes each table to <Dir>/<name>.<Ext> through a stream exporter.
type Files struct {
	Dir string
	Ext string
	New func(w io.Writer) Exporter
}

func (f Files) Export(ctx context.Context, name string, t *table.Typed) (err error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := f.Path(name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return f.New(file).Export(ctx, name, t)
}

// Path returns the file a table named name is written to.
func (f Files) Path(name string) string {
	return filepath.Join(f.Dir, fileStem(name)+"."+f.Ext)
}

func fileStem(name string) string {
	if s := table.CleanName(name); s != "" {
		return s
	}
	return "table"
}

// cellText renders v for text formats.
func cellText(v table.Value, na string) string {
	if v.Missing {
		return na
	}
	return v.String()
}
