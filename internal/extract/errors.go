package extract

import (
	"errors"
	"fmt"
)

// UnsupportedDocumentError reports a document that is neither HTML nor JSON.
type UnsupportedDocumentError struct {
	ContentType string
}

func (e *UnsupportedDocumentError) Error() string {
	if e.ContentType == "" {
		return "unsupported document: no content type and body is not recognizable"
	}
	return fmt.Sprintf("unsupported document content type %q", e.ContentType)
}

// MalformedDocumentError reports a body that cannot be parsed at all.
type MalformedDocumentError struct {
	URL string
	Err error
}

func (e *MalformedDocumentError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("malformed document: %v", e.Err)
	}
	return fmt.Sprintf("malformed document %s: %v", e.URL, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

var errNoDocument = &MalformedDocumentError{Err: errors.New("no document")}

// SelectorError reports a selector that cannot be applied to the document.
type SelectorError struct {
	Selector Selector
	Reason   string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %s", e.Selector.String(), e.Reason)
}
