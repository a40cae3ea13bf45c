package query

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/gotabular/internal/table"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Executor runs plans against a database.
type Executor struct {
	DB      *sql.DB
	Dialect Dialect
}

// Collect is the single execution step: it translates p, runs it and returns
// every row as text. NULL becomes an absent cell.
func (e Executor) Collect(ctx context.Context, p Plan) (*table.Raw, error) {
	stmt, args, err := p.SQL(e.Dialect)
	if err != nil {
		return nil, err
	}
	rows, err := e.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	out := table.NewRaw(table.UniqueNames(cols)...)
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(table.RawRow, len(cols))
		for i, v := range vals {
			row[i] = textOf(v)
		}
		_ = out.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func textOf(v any) table.Text {
	switch x := v.(type) {
	case nil:
		return table.Absent()
	case []byte:
		return table.Some(string(x))
	case string:
		return table.Some(x)
	case int64:
		return table.Some(strconv.FormatInt(x, 10))
	case float64:
		return table.Some(strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		return table.Some(strconv.FormatBool(x))
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return table.Some(x.Format("2006-01-02"))
		}
		return table.Some(x.Format(time.RFC3339Nano))
	default:
		return table.Some(fmt.Sprint(x))
	}
}

// Source locates a database: a local SQLite file, or a remote libsql
// endpoint with an optional auth token.
type Source struct {
	File      string `yaml:"file" json:"file" toml:"file"`
	URL       string `yaml:"url" json:"url" toml:"url"`
	AuthToken string `yaml:"authToken" json:"authToken" toml:"authToken"`
}

// Open connects to the source. Both drivers speak the SQLite dialect.
func (s Source) Open() (*sql.DB, error) {
	if strings.TrimSpace(s.URL) == "" {
		if strings.TrimSpace(s.File) == "" {
			return nil, fmt.Errorf("database source needs a file or a url")
		}
		return sql.Open("sqlite", s.File)
	}
	target := s.URL
	if s.AuthToken != "" {
		values := url.Values{}
		values.Add("authToken", s.AuthToken)
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + values.Encode()
	}
	return sql.Open("libsql", target)
}
