package preview

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/normalize"
	"github.com/Sternrassler/api2xlsx/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T, body string) *normalize.Table {
	t.Helper()
	p, err := payload.Decode([]byte(body))
	require.NoError(t, err)
	tbl, err := normalize.New(normalize.Options{Clock: func() time.Time { return time.Unix(0, 0).UTC() }}).Normalize(p)
	require.NoError(t, err)
	return tbl
}

func TestRender_LimitsRows(t *testing.T) {
	tbl := testTable(t, `[{"id":"row-1"},{"id":"row-2"},{"id":"row-3"},{"id":"row-4"}]`)

	var buf bytes.Buffer
	Render(&buf, tbl, 2)
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "DATA_COLETA")
	assert.Contains(t, out, "row-1")
	assert.Contains(t, out, "row-2")
	assert.NotContains(t, out, "row-3")
	assert.Contains(t, out, "4 RECORDS")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, nil, DefaultRows)
	assert.Equal(t, "No records.\n", buf.String())
}

func TestRender_TruncatesLongCells(t *testing.T) {
	long := strings.Repeat("y", 100)
	tbl := testTable(t, `{"text":"`+long+`"}`)

	var buf bytes.Buffer
	Render(&buf, tbl, DefaultRows)

	assert.NotContains(t, buf.String(), long)
	assert.Contains(t, buf.String(), strings.Repeat("y", maxCellWidth-1)+"…")
}

func TestSheet(t *testing.T) {
	var buf bytes.Buffer
	Sheet(&buf, []string{"id", "name"}, [][]string{{"1", "a"}, {"2", ""}})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Equal(t, 6, strings.Count(out, "\n"), "rounded table: 3 borders, header, 2 rows")
}
