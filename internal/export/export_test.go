package export

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	_ "modernc.org/sqlite"

	"github.com/hyperifyio/gotabular/internal/table"
)

func sampleTable() *table.Typed {
	return &table.Typed{
		Columns: []table.Column{
			{Name: "date", Type: table.TypeDate},
			{Name: "athlete", Type: table.TypeText},
			{Name: "time", Type: table.TypeReal},
			{Name: "rank", Type: table.TypeInteger},
		},
		Rows: [][]table.Value{
			{
				{Type: table.TypeDate, Date: table.Date{Year: 1911, Month: time.August, Day: 3}},
				{Type: table.TypeText, Text: "Donald Lippincott"},
				{Type: table.TypeReal, Real: 10.6},
				{Type: table.TypeInteger, Int: 1},
			},
			{
				table.MissingValue(table.TypeDate),
				{Type: table.TypeText, Text: "Charley, \"Chas\" Paddock"},
				table.MissingValue(table.TypeReal),
				{Type: table.TypeInteger, Int: 2},
			},
		},
	}
}

func TestCSV_WritesMissingMarker(t *testing.T) {
	var buf bytes.Buffer
	err := CSV{W: &buf}.Export(context.Background(), "records", sampleTable())
	require.NoError(t, err)
	want := "date,athlete,time,rank\n" +
		"1911-08-03,Donald Lippincott,10.6,1\n" +
		"NA,\"Charley, \"\"Chas\"\" Paddock\",NA,2\n"
	require.Equal(t, want, buf.String())
}

func TestJSONLines_OrderAndNull(t *testing.T) {
	var buf bytes.Buffer
	err := JSONLines{W: &buf}.Export(context.Background(), "records", sampleTable())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, `{"date":"1911-08-03","athlete":"Donald Lippincott","time":10.6,"rank":1}`, lines[0])
	require.Equal(t, `{"date":null,"athlete":"Charley, \"Chas\" Paddock","time":null,"rank":2}`, lines[1])
}

func TestPretty_Renders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty{W: &buf}.Export(context.Background(), "records", sampleTable()))
	out := buf.String()
	require.Contains(t, out, "records")
	require.Contains(t, out, "Donald Lippincott")
	require.Contains(t, out, "NA")

	buf.Reset()
	require.NoError(t, Pretty{W: &buf, Markdown: true}.Export(context.Background(), "records", sampleTable()))
	require.Contains(t, buf.String(), "| Donald Lippincott |")
}

func TestPDF_Writes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF{W: &buf}.Export(context.Background(), "Järvinen records", sampleTable()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "expected a PDF header")
}

func TestFiles_WritesPerTable(t *testing.T) {
	dir := t.TempDir()
	exp, err := ForFormat("csv", Destination{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, exp.Export(context.Background(), "100m Records", sampleTable()))

	b, err := os.ReadFile(filepath.Join(dir, "100m_records.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "date,athlete,time,rank\n"))
}

func TestForFormat(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []string{"csv", "jsonl", "pretty", "markdown", "pdf"} {
		exp, err := ForFormat(f, Destination{Stdout: &buf})
		require.NoError(t, err, f)
		require.NotNil(t, exp, f)
	}
	_, err := ForFormat("sqlite", Destination{})
	require.Error(t, err)
	_, err = ForFormat("mongo", Destination{})
	require.Error(t, err)
	_, err = ForFormat("xlsx", Destination{Stdout: &buf})
	require.ErrorContains(t, err, "xlsx")
	_, err = ForFormat("csv", Destination{})
	require.Error(t, err)
}

func TestSQLite_StoresTypedRows(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	exp := SQLite{DB: db, Replace: true, RunID: "run-1"}
	require.NoError(t, exp.Export(context.Background(), "records", sampleTable()))
	// Replace makes a second export overwrite rather than append.
	require.NoError(t, exp.Export(context.Background(), "records", sampleTable()))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "records"`).Scan(&n))
	require.Equal(t, 2, n)

	var run string
	var d sql.NullString
	var tm sql.NullFloat64
	var rank int64
	require.NoError(t, db.QueryRow(`SELECT "run_id", "date", "time", "rank" FROM "records" WHERE "rank" = 2`).Scan(&run, &d, &tm, &rank))
	require.Equal(t, "run-1", run)
	require.False(t, d.Valid)
	require.False(t, tm.Valid)
	require.EqualValues(t, 2, rank)

	var secs float64
	require.NoError(t, db.QueryRow(`SELECT "time" FROM "records" WHERE "rank" = 1`).Scan(&secs))
	require.InDelta(t, 10.6, secs, 1e-9)
}

func TestDocuments(t *testing.T) {
	docs := Documents("records", "run-1", sampleTable())
	require.Len(t, docs, 2)

	first, ok := docs[0].(bson.D)
	require.True(t, ok)
	require.Equal(t, bson.E{Key: "_table", Value: "records"}, first[0])
	require.Equal(t, bson.E{Key: RunColumn, Value: "run-1"}, first[1])
	require.Equal(t, "date", first[2].Key)
	require.Equal(t, time.Date(1911, time.August, 3, 0, 0, 0, 0, time.UTC), first[2].Value)
	require.Equal(t, bson.E{Key: "time", Value: 10.6}, first[4])

	second := docs[1].(bson.D)
	require.Nil(t, second[2].Value)
	require.Nil(t, second[4].Value)
	require.Equal(t, bson.E{Key: "rank", Value: int64(2)}, second[5])
}
