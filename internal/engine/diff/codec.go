package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Encode converts ops to their compact form: a string for an insert, a
// positive int for a retain and a negative int for a delete.
func Encode(ops []Op) []any {
	out := make([]any, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.value())
	}
	return out
}

func (o Op) value() any {
	switch o.Kind {
	case Retain:
		return o.N
	case Delete:
		return -o.N
	default:
		return o.Text
	}
}

// MarshalJSON encodes the op in its compact form.
func (o Op) MarshalJSON() ([]byte, error) {
	if o.Kind != Insert && o.N <= 0 {
		return nil, fmt.Errorf("%w: %s with non-positive count", ErrMalformedPatch, o.Kind)
	}
	return json.Marshal(o.value())
}

// UnmarshalJSON decodes an op from its compact form.
func (o *Op) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}
	op, err := decodeValue(v)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Decode converts compact values, as produced by a JSON decoder, back to
// ops. Numbers may be float64, json.Number or any Go integer type; zero,
// fractional and out of range numbers are rejected.
func Decode(raw []any) ([]Op, error) {
	ops := make([]Op, 0, len(raw))
	for i, v := range raw {
		op, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func decodeValue(v any) (Op, error) {
	var n int64
	switch t := v.(type) {
	case string:
		if t == "" {
			return Op{}, fmt.Errorf("%w: empty insert", ErrMalformedPatch)
		}
		return InsertOp(t), nil
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > 1<<53 {
			return Op{}, fmt.Errorf("%w: count %v is not an integer", ErrMalformedPatch, t)
		}
		n = int64(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return Op{}, fmt.Errorf("%w: count %q: %v", ErrMalformedPatch, t, err)
		}
		n = i
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	default:
		return Op{}, fmt.Errorf("%w: unexpected %T", ErrMalformedPatch, v)
	}

	switch {
	case n > 0 && n <= math.MaxInt32:
		return RetainOp(int(n)), nil
	case n < 0 && n >= -math.MaxInt32:
		return DeleteOp(int(-n)), nil
	default:
		return Op{}, fmt.Errorf("%w: count %d", ErrMalformedPatch, n)
	}
}
