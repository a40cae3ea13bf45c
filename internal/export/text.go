package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hyperifyio/gotabular/internal/table"
)

// CSV writes a header row and one record per row. Missing cells are written
// as NA so they stay distinguishable from empty text.
type CSV struct {
	W  io.Writer
	NA string
}

func (c CSV) Export(_ context.Context, _ string, t *table.Typed) error {
	na := c.NA
	if na == "" {
		na = DefaultNA
	}
	w := csv.NewWriter(c.W)
	if err := w.Write(t.Names()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = cellText(v, na)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// JSONLines writes one JSON object per row with keys in column order.
// Missing cells are null; dates are ISO strings.
type JSONLines struct {
	W io.Writer
}

func (j JSONLines) Export(_ context.Context, _ string, t *table.Typed) error {
	keys := make([][]byte, len(t.Columns))
	for i, c := range t.Columns {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	var buf bytes.Buffer
	for _, row := range t.Rows {
		buf.Reset()
		buf.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			b, err := json.Marshal(v.Interface())
			if err != nil {
				return fmt.Errorf("encode %s: %w", t.Columns[i].Name, err)
			}
			buf.Write(b)
		}
		buf.WriteString("}\n")
		if _, err := j.W.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// Pretty renders a boxed terminal table, or a Markdown table.
type Pretty struct {
	W        io.Writer
	NA       string
	Markdown bool
}

func (p Pretty) Export(_ context.Context, name string, t *table.Typed) error {
	na := p.NA
	if na == "" {
		na = DefaultNA
	}
	w := prettytable.NewWriter()
	if !p.Markdown {
		w.SetStyle(prettytable.StyleLight)
		w.SetTitle(name)
	}
	header := make(prettytable.Row, len(t.Columns))
	cfgs := make([]prettytable.ColumnConfig, 0, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
		if c.Type == table.TypeInteger || c.Type == table.TypeReal {
			cfgs = append(cfgs, prettytable.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	w.AppendHeader(header)
	w.SetColumnConfigs(cfgs)
	for _, row := range t.Rows {
		r := make(prettytable.Row, len(row))
		for i, v := range row {
			r[i] = cellText(v, na)
		}
		w.AppendRow(r)
	}
	var out string
	if p.Markdown {
		out = w.RenderMarkdown()
	} else {
		out = w.Render()
	}
	_, err := io.WriteString(p.W, out+"\n")
	return err
}
