// Package payload decodes API responses and classifies them into the JSON
// shapes the exporter understands.
//
// The shape is decided once, at decode time:
//
//   - Empty: null, {}, [], "", false or a zero number
//   - Object: a single JSON object, exported as one row
//   - List: a JSON array, one row per element
//   - Envelope: an object with a "results" array and an optional "next" link
//   - Scalar: any other top-level value
//
// Numbers are kept as json.Number and objects as *Object so key order and
// integer formatting survive the trip to the spreadsheet.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind identifies the shape of a decoded payload.
type Kind string

const (
	KindEmpty    Kind = "empty"
	KindObject   Kind = "object"
	KindList     Kind = "list"
	KindEnvelope Kind = "envelope"
	KindScalar   Kind = "scalar"
)

// Envelope field names.
const (
	ResultsKey = "results"
	NextKey    = "next"
)

// Envelope is one page of a paginated response.
type Envelope struct {
	Results []any

	// Next is the link to the following page, "" on the last page.
	Next string

	// Source is the URL this page was fetched from. Relative Next links
	// resolve against it.
	Source string
}

// Payload is a decoded response tagged with its shape. Exactly one of the
// value fields is set, matching Kind.
type Payload struct {
	Kind     Kind
	Object   *Object
	List     []any
	Envelope *Envelope
	Scalar   any
}

// MaxDepth is the deepest nesting of arrays and objects Decode accepts,
// the same limit encoding/json enforces.
const MaxDepth = 10000

var (
	// ErrTrailingData is returned when a body holds more than one JSON value.
	ErrTrailingData = errors.New("unexpected data after top-level JSON value")

	// ErrTooDeep is returned when a body nests deeper than MaxDepth.
	ErrTooDeep = fmt.Errorf("exceeded max depth of %d", MaxDepth)
)

// Decode parses data as a single JSON value and classifies it.
func Decode(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return Payload{}, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Payload{}, fmt.Errorf("decode json: %w", ErrTrailingData)
	}

	return Classify(v), nil
}

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if depth >= MaxDepth {
		return nil, ErrTooDeep
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T, not string", kt)
			}
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil

	case '[':
		list := []any{}
		for dec.More() {
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// Classify tags an already decoded value with its shape.
func Classify(v any) Payload {
	switch val := v.(type) {
	case nil:
		return Payload{Kind: KindEmpty}

	case *Object:
		if val == nil || val.Len() == 0 {
			return Payload{Kind: KindEmpty}
		}
		if env, ok := asEnvelope(val); ok {
			return Payload{Kind: KindEnvelope, Envelope: env}
		}
		return Payload{Kind: KindObject, Object: val}

	case []any:
		if len(val) == 0 {
			return Payload{Kind: KindEmpty}
		}
		return Payload{Kind: KindList, List: val}

	case string:
		if val == "" {
			return Payload{Kind: KindEmpty}
		}
		return Payload{Kind: KindScalar, Scalar: val}

	case bool:
		if !val {
			return Payload{Kind: KindEmpty}
		}
		return Payload{Kind: KindScalar, Scalar: val}

	case json.Number:
		if f, err := val.Float64(); err == nil && f == 0 {
			return Payload{Kind: KindEmpty}
		}
		return Payload{Kind: KindScalar, Scalar: val}

	default:
		return Payload{Kind: KindScalar, Scalar: val}
	}
}

// asEnvelope reports whether obj has a "results" key holding an array
// (or null). Any other "results" value leaves obj a plain object.
func asEnvelope(obj *Object) (*Envelope, bool) {
	raw, ok := obj.Get(ResultsKey)
	if !ok {
		return nil, false
	}

	env := &Envelope{}
	switch results := raw.(type) {
	case []any:
		env.Results = results
	case nil:
		env.Results = []any{}
	default:
		return nil, false
	}

	if next, ok := obj.Get(NextKey); ok {
		if s, ok := next.(string); ok {
			env.Next = s
		}
	}
	return env, true
}

// FromItems wraps accumulated page items as a payload.
func FromItems(items []any) Payload {
	if len(items) == 0 {
		return Payload{Kind: KindEmpty}
	}
	return Payload{Kind: KindList, List: items}
}

// Len returns the number of records the payload will produce.
func (p Payload) Len() int {
	switch p.Kind {
	case KindObject, KindScalar:
		return 1
	case KindList:
		return len(p.List)
	case KindEnvelope:
		return len(p.Envelope.Results)
	default:
		return 0
	}
}

// IsEmpty reports whether there is nothing to export.
func (p Payload) IsEmpty() bool {
	return p.Len() == 0
}
