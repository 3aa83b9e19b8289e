package normalize

import (
	"encoding/json"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/logging"
	"github.com/Sternrassler/api2xlsx/pkg/payload"
	"github.com/rs/zerolog"
)

const (
	// TimestampColumn holds the collection time of the run.
	TimestampColumn = "data_coleta"

	// TimestampLayout is the format of TimestampColumn values.
	TimestampLayout = "2006-01-02 15:04:05"

	// ValueColumn holds records that are not JSON objects.
	ValueColumn = "value"

	DefaultSeparator = "."
	DefaultMaxDepth  = 32
)

// Record is one flattened row. Absent keys render as blank cells.
type Record map[string]any

// Table is the normalized record sequence.
type Table struct {
	// Columns is the union of all record keys in first-seen order, with
	// TimestampColumn last.
	Columns []string

	Rows []Record

	// CollectedAt is the timestamp written to every row.
	CollectedAt time.Time
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) []Record {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// Options configures a Normalizer.
type Options struct {
	// Separator joins parent and child keys (default ".").
	Separator string

	// MaxDepth bounds object nesting (default 32).
	MaxDepth int

	// Clock supplies the run timestamp (default time.Now).
	Clock func() time.Time
}

// DefaultOptions returns the default normalizer options.
func DefaultOptions() Options {
	return Options{
		Separator: DefaultSeparator,
		MaxDepth:  DefaultMaxDepth,
		Clock:     time.Now,
	}
}

// Normalizer flattens payloads into tables. It holds no per-run state and is
// safe for concurrent use.
type Normalizer struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Normalizer. Zero option fields take their defaults.
func New(opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.Separator == "" {
		opts.Separator = def.Separator
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Normalizer{
		opts:   opts,
		logger: logging.NewLogger("normalize"),
	}
}

// Normalize flattens p into a table. Empty payloads return
// ErrNothingToExport; any record that cannot be flattened fails the whole
// call with a *NormalizeError.
func (n *Normalizer) Normalize(p payload.Payload) (*Table, error) {
	var items []any
	switch p.Kind {
	case payload.KindObject:
		items = []any{p.Object}
	case payload.KindList:
		items = p.List
	case payload.KindEnvelope:
		items = p.Envelope.Results
	case payload.KindScalar:
		items = []any{p.Scalar}
	}
	if len(items) == 0 {
		return nil, ErrNothingToExport
	}

	collectedAt := n.opts.Clock()
	stamp := collectedAt.Format(TimestampLayout)

	t := &Table{
		Rows:        make([]Record, 0, len(items)),
		CollectedAt: collectedAt,
	}
	seen := make(map[string]struct{})

	for i, item := range items {
		rec, cols, err := n.record(i, item)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if c == TimestampColumn {
				continue
			}
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				t.Columns = append(t.Columns, c)
			}
		}
		rec[TimestampColumn] = stamp
		t.Rows = append(t.Rows, rec)
	}
	t.Columns = append(t.Columns, TimestampColumn)

	n.logger.Debug().
		Str("shape", string(p.Kind)).
		Int("rows", len(t.Rows)).
		Int("columns", len(t.Columns)).
		Msg("Normalized payload")

	return t, nil
}

// record flattens one item and returns its columns in insertion order.
func (n *Normalizer) record(row int, item any) (Record, []string, error) {
	f := &flattener{
		sep:      n.opts.Separator,
		maxDepth: n.opts.MaxDepth,
		row:      row,
		rec:      make(Record),
	}

	obj, ok := item.(*payload.Object)
	if !ok {
		v, err := cellValue(item)
		if err != nil {
			return nil, nil, &NormalizeError{Row: row, Column: ValueColumn, Reason: "unencodable value", Err: err}
		}
		f.put(ValueColumn, v)
		return f.rec, f.cols, nil
	}

	if err := f.object("", obj, 1); err != nil {
		return nil, nil, err
	}
	return f.rec, f.cols, nil
}

type flattener struct {
	sep      string
	maxDepth int
	row      int
	rec      Record
	cols     []string
}

func (f *flattener) object(prefix string, obj *payload.Object, depth int) error {
	if depth > f.maxDepth {
		return &NormalizeError{Row: f.row, Column: prefix, Reason: "nesting exceeds maximum depth"}
	}

	for _, key := range obj.Keys() {
		col := key
		if prefix != "" {
			col = prefix + f.sep + key
		}
		if _, dup := f.rec[col]; dup {
			return &NormalizeError{Row: f.row, Column: col, Reason: "column collision after flattening"}
		}

		raw, _ := obj.Get(key)
		if nested, ok := raw.(*payload.Object); ok {
			if nested.Len() == 0 {
				f.put(col, nil)
				continue
			}
			if err := f.object(col, nested, depth+1); err != nil {
				return err
			}
			continue
		}

		v, err := cellValue(raw)
		if err != nil {
			return &NormalizeError{Row: f.row, Column: col, Reason: "unencodable value", Err: err}
		}
		f.put(col, v)
	}
	return nil
}

func (f *flattener) put(col string, v any) {
	f.rec[col] = v
	f.cols = append(f.cols, col)
}

// cellValue converts a leaf value into something a cell can hold. Arrays
// and objects become compact JSON text.
func cellValue(v any) (any, error) {
	switch v.(type) {
	case []any, *payload.Object:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}
