package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/dshills/ropesync/internal/engine/diff"
)

// DecodeServer decodes a server-to-client message: a *Refresh or a *Patch.
// Malformed patch ops are reported with diff.ErrMalformedPatch so the
// client can recover by requesting a refresh.
func DecodeServer(data []byte) (Message, error) {
	fields, tag, err := split(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagRefresh:
		return decodeRefresh(fields)
	case TagPatch:
		return decodePatch(fields)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

// DecodeClient decodes a client-to-server message.
func DecodeClient(data []byte) (Message, error) {
	fields, tag, err := split(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagRefresh:
		if len(fields) != 1 {
			return nil, fmt.Errorf("%w: request refresh takes no arguments", ErrMalformedMessage)
		}
		return RequestRefresh{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

func split(data []byte) ([]gjson.Result, string, error) {
	if !gjson.ValidBytes(data) {
		return nil, "", fmt.Errorf("%w: invalid json", ErrMalformedMessage)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, "", fmt.Errorf("%w: not an array", ErrMalformedMessage)
	}
	fields := root.Array()
	if len(fields) == 0 || fields[0].Type != gjson.String {
		return nil, "", fmt.Errorf("%w: missing tag", ErrMalformedMessage)
	}
	return fields, fields[0].Str, nil
}

func decodeRefresh(f []gjson.Result) (*Refresh, error) {
	if len(f) != 5 {
		return nil, fmt.Errorf("%w: refresh has %d fields, want 5", ErrMalformedMessage, len(f))
	}
	rev, err := uintField(f[1], "revision")
	if err != nil {
		return nil, err
	}
	if f[2].Type != gjson.String {
		return nil, fmt.Errorf("%w: state is %s, want string", ErrMalformedMessage, f[2].Type)
	}
	ts, err := intField(f[4], "server time")
	if err != nil {
		return nil, err
	}
	return &Refresh{
		Revision:   rev,
		State:      f[2].Str,
		Build:      buildField(f[3]),
		ServerTime: ts,
	}, nil
}

func decodePatch(f []gjson.Result) (*Patch, error) {
	if len(f) != 4 {
		return nil, fmt.Errorf("%w: patch has %d fields, want 4", ErrMalformedMessage, len(f))
	}
	base, err := uintField(f[1], "base revision")
	if err != nil {
		return nil, err
	}
	if !f[2].IsArray() {
		return nil, fmt.Errorf("%w: ops is not an array", ErrMalformedMessage)
	}
	ts, err := intField(f[3], "server time")
	if err != nil {
		return nil, err
	}

	elems := f[2].Array()
	raw := make([]any, len(elems))
	for i, e := range elems {
		switch e.Type {
		case gjson.String:
			raw[i] = e.Str
		case gjson.Number:
			raw[i] = json.Number(e.Raw)
		default:
			raw[i] = e.Value()
		}
	}
	ops, err := diff.Decode(raw)
	if err != nil {
		return nil, err
	}

	return &Patch{BaseRevision: base, Ops: ops, ServerTime: ts}, nil
}

// buildField accepts any scalar as the build identifier.
func buildField(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

func uintField(r gjson.Result, name string) (uint64, error) {
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is %s, want number", ErrMalformedMessage, name, r.Type)
	}
	v, err := strconv.ParseUint(r.Raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s", ErrMalformedMessage, name, r.Raw)
	}
	return v, nil
}

func intField(r gjson.Result, name string) (int64, error) {
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is %s, want number", ErrMalformedMessage, name, r.Type)
	}
	if v, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
		return v, nil
	}
	// Tolerate fractional timestamps.
	return int64(r.Num), nil
}
