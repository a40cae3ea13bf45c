package extract

import (
	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/table"
)

// Extractor turns one document into a RawTable. Implementations are
// deterministic and keep no state between calls.
type Extractor interface {
	Extract(doc *fetch.RawDocument, sel Selector) (*table.Raw, error)
}

// HTMLExtractor selects tables from HTML with CSS selectors.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(doc *fetch.RawDocument, sel Selector) (*table.Raw, error) {
	return fromHTML(doc, sel)
}

// JSONExtractor selects records from JSON with key paths.
type JSONExtractor struct{}

func (JSONExtractor) Extract(doc *fetch.RawDocument, sel Selector) (*table.Raw, error) {
	return fromJSON(doc, sel)
}

// Auto dispatches on the document kind.
type Auto struct{}

func (Auto) Extract(doc *fetch.RawDocument, sel Selector) (*table.Raw, error) {
	return Extract(doc, sel)
}
