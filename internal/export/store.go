package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hyperifyio/gotabular/internal/table"
)

// RunColumn holds the run ID in stored rows when one is set.
const RunColumn = "run_id"

// SQLite stores the table as a database table named after it, with column
// affinities from the declared types and NULL for missing cells. All rows go
// in one transaction.
type SQLite struct {
	DB *sql.DB
	// Replace drops an existing table of the same name first.
	Replace bool
	RunID   string
}

func (s SQLite) Export(ctx context.Context, name string, t *table.Typed) (err error) {
	tableName := fileStem(name)
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.Replace {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(tableName)); err != nil {
			return fmt.Errorf("drop %s: %w", tableName, err)
		}
	}

	var defs, cols, marks []string
	if s.RunID != "" {
		defs = append(defs, quoteIdent(RunColumn)+" TEXT")
		cols = append(cols, quoteIdent(RunColumn))
		marks = append(marks, "?")
	}
	for _, c := range t.Columns {
		defs = append(defs, quoteIdent(c.Name)+" "+affinity(c.Type))
		cols = append(cols, quoteIdent(c.Name))
		marks = append(marks, "?")
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(tableName), strings.Join(defs, ", "))
	if _, err = tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", tableName, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(tableName), strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, 0, len(marks))
		if s.RunID != "" {
			args = append(args, s.RunID)
		}
		for _, v := range row {
			args = append(args, v.Interface())
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func affinity(t table.Type) string {
	switch t {
	case table.TypeInteger:
		return "INTEGER"
	case table.TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Mongo inserts one document per row into Collection. Documents carry the
// table name, the run ID when set, and the columns in order; missing cells
// are stored as null and dates as BSON dates.
type Mongo struct {
	Collection *mongo.Collection
	RunID      string
}

func (m Mongo) Export(ctx context.Context, name string, t *table.Typed) error {
	docs := Documents(name, m.RunID, t)
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.Collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert into %s: %w", m.Collection.Name(), err)
	}
	return nil
}

// Documents builds the BSON documents Mongo would insert.
func Documents(name, runID string, t *table.Typed) []any {
	docs := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		doc := bson.D{{Key: "_table", Value: name}}
		if runID != "" {
			doc = append(doc, bson.E{Key: RunColumn, Value: runID})
		}
		for i, v := range row {
			var val any
			switch {
			case v.Missing:
				val = nil
			case v.Type == table.TypeDate:
				val = v.Date.Time()
			default:
				val = v.Interface()
			}
			doc = append(doc, bson.E{Key: t.Columns[i].Name, Value: val})
		}
		docs = append(docs, doc)
	}
	return docs
}
