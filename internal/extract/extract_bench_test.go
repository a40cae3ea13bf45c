package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hyperifyio/gotabular/internal/fetch"
)

// Benchmark HTML and JSON extraction on tables of increasing size.
func BenchmarkExtract(b *testing.B) {
	for _, rows := range []int{10, 200, 2000} {
		htmlBody := makeHTMLTable(rows)
		jsonBody := makeJSONRows(rows)
		b.Run(fmt.Sprintf("html/rows=%d", rows), func(b *testing.B) {
			doc := &fetch.RawDocument{ContentType: "text/html", Body: htmlBody}
			for i := 0; i < b.N; i++ {
				if _, err := Extract(doc, CSS("table.data")); err != nil {
					b.Fatal(err)
				}
			}
		})
		b.Run(fmt.Sprintf("json/rows=%d", rows), func(b *testing.B) {
			doc := &fetch.RawDocument{ContentType: "application/json", Body: jsonBody}
			for i := 0; i < b.N; i++ {
				if _, err := Extract(doc, KeyPath("rows")); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func makeHTMLTable(rows int) []byte {
	var sb strings.Builder
	sb.WriteString(`<html><body><table class="data"><tr><th>Date</th><th>Athlete</th><th>Time</th></tr>`)
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "<tr><td>07/06/%d</td><td>Runner %d</td><td>%d.%d</td></tr>", 1900+i%100, i, 9+i%3, i%10)
	}
	sb.WriteString("</table></body></html>")
	return []byte(sb.String())
}

func makeJSONRows(rows int) []byte {
	var sb strings.Builder
	sb.WriteString(`{"rows":[`)
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"date":"07/06/%d","athlete":"Runner %d","time":%d.%d}`, 1900+i%100, i, 9+i%3, i%10)
	}
	sb.WriteString("]}")
	return []byte(sb.String())
}
