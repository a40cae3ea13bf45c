// Package extract turns fetched HTML and JSON documents into RawTables.
package extract

import (
	"bytes"
	"mime"
	"strings"

	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/table"
)

// Kind is the broad document family an extractor understands.
type Kind int

const (
	KindHTML Kind = iota + 1
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindJSON:
		return "json"
	}
	return "unknown"
}

// Extract applies sel to doc. A selector that matches nothing yields an empty
// table, not an error.
func Extract(doc *fetch.RawDocument, sel Selector) (*table.Raw, error) {
	if doc == nil {
		return nil, errNoDocument
	}
	kind, err := DetectKind(doc.ContentType, doc.Body)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindHTML:
		return HTMLExtractor{}.Extract(doc, sel)
	default:
		return JSONExtractor{}.Extract(doc, sel)
	}
}

// DetectKind classifies a document by content type. With no content type the
// first non-space byte of body decides.
func DetectKind(contentType string, body []byte) (Kind, error) {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return sniff(body)
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	switch {
	case mt == "text/html", mt == "application/xhtml+xml":
		return KindHTML, nil
	case mt == "application/json", mt == "text/json", strings.HasSuffix(mt, "+json"):
		return KindJSON, nil
	}
	return 0, &UnsupportedDocumentError{ContentType: contentType}
}

func sniff(body []byte) (Kind, error) {
	b := bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) > 0 {
		switch b[0] {
		case '{', '[':
			return KindJSON, nil
		case '<':
			return KindHTML, nil
		}
	}
	return 0, &UnsupportedDocumentError{}
}

// collapseSpaces trims s and folds every whitespace run into one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// record is one extracted row keyed by the source's own column labels.
type record struct {
	keys  []string
	cells map[string]table.Text
}

// buildRaw cleans the first-seen union of labels, de-duplicates the cleaned
// names and lays every record out on that column set.
func buildRaw(labels []string, recs []record) *table.Raw {
	names := table.UniqueNames(labels)
	out := table.NewRaw(names...)
	for _, rec := range recs {
		row := make(table.RawRow, len(names))
		for i, label := range labels {
			if v, ok := rec.cells[label]; ok {
				row[i] = v
			}
		}
		// Cannot fail: row has exactly len(names) cells.
		_ = out.Append(row)
	}
	return out
}

// mergeInto appends src's rows to dst, adding columns dst lacks and matching
// the rest by name.
func mergeInto(dst, src *table.Raw) {
	idx := make([]int, len(src.Columns))
	for i, name := range src.Columns {
		idx[i] = dst.AddColumn(name)
	}
	for _, r := range src.Rows {
		row := make(table.RawRow, len(dst.Columns))
		for i, v := range r {
			row[idx[i]] = v
		}
		_ = dst.Append(row)
	}
}
