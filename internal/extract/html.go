package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/table"
)

const maxColspan = 1000

func fromHTML(doc *fetch.RawDocument, sel Selector) (*table.Raw, error) {
	if doc == nil {
		return nil, errNoDocument
	}
	if sel.Syntax != SyntaxCSS {
		return nil, &SelectorError{Selector: sel, Reason: "HTML documents need a css selector"}
	}
	if strings.TrimSpace(sel.Expr) == "" {
		return nil, &SelectorError{Selector: sel, Reason: "empty selector"}
	}
	// goquery panics on invalid selectors passed as strings, so compile first.
	matcher, err := cascadia.Compile(sel.Expr)
	if err != nil {
		return nil, &SelectorError{Selector: sel, Reason: err.Error()}
	}
	if len(bytes.TrimSpace(doc.Body)) == 0 {
		return nil, &MalformedDocumentError{URL: doc.URL, Err: errors.New("empty body")}
	}
	r, err := charset.NewReader(bytes.NewReader(doc.Body), doc.ContentType)
	if err != nil {
		return nil, &MalformedDocumentError{URL: doc.URL, Err: fmt.Errorf("decode: %w", err)}
	}
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &MalformedDocumentError{URL: doc.URL, Err: err}
	}

	out := table.NewRaw()
	for _, n := range topLevel(gq.FindMatcher(matcher).Nodes) {
		root := tableRoot(n)
		if root == nil {
			continue
		}
		if t := gridTable(root); t != nil {
			mergeInto(out, t)
		}
	}
	return out, nil
}

// topLevel drops nodes nested inside another selected node.
func topLevel(nodes []*html.Node) []*html.Node {
	set := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		nested := false
		for p := n.Parent; p != nil; p = p.Parent {
			if set[p] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

// tableRoot returns the node whose rows n contributes, or nil when n is not
// table-shaped.
func tableRoot(n *html.Node) *html.Node {
	if isElement(n, "table") {
		return n
	}
	if t := findFirst(n, "table"); t != nil {
		return t
	}
	if findFirst(n, "tr") != nil {
		return n
	}
	return nil
}

type htmlRow struct {
	node   *html.Node
	inHead bool
}

// ownRows lists the rows of root without descending into nested tables.
func ownRows(root *html.Node) []htmlRow {
	var rows []htmlRow
	var walk func(n *html.Node, inHead bool)
	walk = func(n *html.Node, inHead bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				continue
			case "tr":
				rows = append(rows, htmlRow{node: c, inHead: inHead})
				continue
			case "thead":
				walk(c, true)
				continue
			}
			walk(c, inHead)
		}
	}
	walk(root, false)
	return rows
}

func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "td") || isElement(c, "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

// gridTable lays the rows of root on a grid, repeating the text of spanned
// cells, and splits header rows from body rows.
func gridTable(root *html.Node) *table.Raw {
	rows := ownRows(root)
	if len(rows) == 0 {
		return nil
	}
	head := headerRows(rows)
	isHead := make(map[int]bool, len(head))
	for _, r := range head {
		isHead[r] = true
	}

	// A header cell spanning into body rows occupies its slots there without
	// repeating its text.
	spanned := new(string)
	grid := make([][]*string, len(rows))
	set := func(r, c int, s *string) {
		for len(grid[r]) <= c {
			grid[r] = append(grid[r], nil)
		}
		if grid[r][c] == nil {
			grid[r][c] = s
		}
	}
	for r, row := range rows {
		c := 0
		for _, td := range rowCells(row.node) {
			for c < len(grid[r]) && grid[r][c] != nil {
				c++
			}
			text := collapseSpaces(textOf(td))
			cs := span(td, "colspan", 1, maxColspan)
			rs := span(td, "rowspan", 1, len(rows)-r)
			for i := 0; i < rs; i++ {
				cell := &text
				if isHead[r] && !isHead[r+i] {
					cell = spanned
				}
				for j := 0; j < cs; j++ {
					set(r+i, c+j, cell)
				}
			}
			c += cs
		}
	}

	width := 0
	for _, g := range grid {
		if len(g) > width {
			width = len(g)
		}
	}
	labels := make([]string, width)
	for c := range labels {
		var parts []string
		for _, r := range head {
			if c >= len(grid[r]) || grid[r][c] == nil || *grid[r][c] == "" {
				continue
			}
			p := *grid[r][c]
			if len(parts) > 0 && parts[len(parts)-1] == p {
				continue
			}
			parts = append(parts, p)
		}
		labels[c] = strings.Join(parts, "_")
	}

	out := table.NewRaw(table.UniqueNames(labels)...)
	for r := range rows {
		if isHead[r] {
			continue
		}
		cells := make(table.RawRow, width)
		for c, s := range grid[r] {
			if s != nil && s != spanned {
				cells[c] = table.Some(*s)
			}
		}
		_ = out.Append(cells)
	}
	return out
}

// headerRows picks <thead> rows, else the leading rows made only of <th>
// cells, else the first row.
func headerRows(rows []htmlRow) []int {
	var head []int
	for i, r := range rows {
		if r.inHead {
			head = append(head, i)
		}
	}
	if len(head) > 0 {
		return head
	}
	for i, r := range rows {
		cells := rowCells(r.node)
		if len(cells) == 0 {
			break
		}
		allTH := true
		for _, c := range cells {
			if !isElement(c, "th") {
				allTH = false
				break
			}
		}
		if !allTH {
			break
		}
		head = append(head, i)
	}
	if len(head) > 0 {
		return head
	}
	return []int{0}
}

func span(n *html.Node, attr string, def, max int) int {
	for _, a := range n.Attr {
		if a.Key != attr {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 0 {
			return def
		}
		if v == 0 {
			// rowspan=0 spans the rest of the table; colspan=0 is invalid.
			if attr == "rowspan" {
				return max
			}
			return def
		}
		if v > max {
			return max
		}
		return v
	}
	return def
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			return
		case html.ElementNode:
			switch cur.Data {
			case "script", "style":
				return
			case "br":
				b.WriteByte(' ')
				return
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
}

func findFirst(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tag) {
			return c
		}
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}
