package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/table"
)

type jsonKind int

const (
	jsonNull jsonKind = iota
	jsonString
	jsonNumber
	jsonBool
	jsonObject
	jsonArray
)

// jsonNode is a decoded JSON value that remembers object key order and the
// literal text of numbers.
type jsonNode struct {
	kind   jsonKind
	text   string
	keys   []string
	fields map[string]*jsonNode
	elems  []*jsonNode
}

func fromJSON(doc *fetch.RawDocument, sel Selector) (*table.Raw, error) {
	if doc == nil {
		return nil, errNoDocument
	}
	if sel.Syntax != SyntaxKeyPath {
		return nil, &SelectorError{Selector: sel, Reason: "JSON documents need a key-path selector"}
	}
	segs, err := splitPath(sel.Expr)
	if err != nil {
		return nil, &SelectorError{Selector: sel, Reason: err.Error()}
	}
	root, err := parseJSON(doc.Body)
	if err != nil {
		return nil, &MalformedDocumentError{URL: doc.URL, Err: err}
	}
	items := resolve(root, segs)

	var labels []string
	seen := make(map[string]bool)
	recs := make([]record, 0, len(items))
	for _, it := range items {
		rec := record{cells: make(map[string]table.Text)}
		if it.kind == jsonObject {
			for _, k := range it.keys {
				rec.keys = append(rec.keys, k)
				rec.cells[k] = it.fields[k].cell()
			}
		} else {
			rec.keys = []string{"value"}
			rec.cells["value"] = it.cell()
		}
		for _, k := range rec.keys {
			if !seen[k] {
				seen[k] = true
				labels = append(labels, k)
			}
		}
		recs = append(recs, rec)
	}
	return buildRaw(labels, recs), nil
}

func splitPath(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	segs := strings.Split(expr, ".")
	for i, s := range segs {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("empty segment at position %d", i+1)
		}
		segs[i] = s
	}
	return segs, nil
}

// resolve walks segs from root and returns the values that become rows. An
// unresolved path yields no rows.
func resolve(root *jsonNode, segs []string) []*jsonNode {
	cur := []*jsonNode{root}
	fanned := false
	for _, seg := range segs {
		var next []*jsonNode
		for _, n := range cur {
			if seg == "*" {
				switch n.kind {
				case jsonArray:
					next = append(next, n.elems...)
				case jsonObject:
					for _, k := range n.keys {
						next = append(next, n.fields[k])
					}
				}
				continue
			}
			switch n.kind {
			case jsonObject:
				if c, ok := n.fields[seg]; ok {
					next = append(next, c)
				}
			case jsonArray:
				if i, err := strconv.Atoi(seg); err == nil && i >= 0 && i < len(n.elems) {
					next = append(next, n.elems[i])
				}
			}
		}
		if seg == "*" {
			fanned = true
		}
		cur = next
	}

	var items []*jsonNode
	for _, n := range cur {
		switch {
		case n.kind == jsonArray:
			items = append(items, n.elems...)
		case n.kind == jsonNull && !fanned:
			// A path that ends on null has nothing to tabulate.
		default:
			items = append(items, n)
		}
	}
	return items
}

func (n *jsonNode) cell() table.Text {
	switch n.kind {
	case jsonNull:
		return table.Absent()
	case jsonObject, jsonArray:
		var b bytes.Buffer
		n.compact(&b)
		return table.Some(b.String())
	default:
		return table.Some(n.text)
	}
}

func (n *jsonNode) compact(b *bytes.Buffer) {
	switch n.kind {
	case jsonNull:
		b.WriteString("null")
	case jsonString:
		writeJSONString(b, n.text)
	case jsonObject:
		b.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, k)
			b.WriteByte(':')
			n.fields[k].compact(b)
		}
		b.WriteByte('}')
	case jsonArray:
		b.WriteByte('[')
		for i, e := range n.elems {
			if i > 0 {
				b.WriteByte(',')
			}
			e.compact(b)
		}
		b.WriteByte(']')
	default:
		b.WriteString(n.text)
	}
}

func writeJSONString(b *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	b.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

// parseJSON decodes exactly one JSON value.
func parseJSON(body []byte) (*jsonNode, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	n, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (*jsonNode, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &jsonNode{kind: jsonObject, fields: make(map[string]*jsonNode)}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				child, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := n.fields[key]; !dup {
					n.keys = append(n.keys, key)
				}
				n.fields[key] = child
			}
			if err := closeDelim(dec, '}'); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &jsonNode{kind: jsonArray}
			for dec.More() {
				child, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				n.elems = append(n.elems, child)
			}
			if err := closeDelim(dec, ']'); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", v)
	case string:
		return &jsonNode{kind: jsonString, text: v}, nil
	case json.Number:
		return &jsonNode{kind: jsonNumber, text: v.String()}, nil
	case bool:
		return &jsonNode{kind: jsonBool, text: strconv.FormatBool(v)}, nil
	case nil:
		return &jsonNode{kind: jsonNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
