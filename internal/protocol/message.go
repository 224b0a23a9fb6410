package protocol

import (
	"errors"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/ropesync/internal/engine/diff"
)

// Message tags.
const (
	TagRefresh = "r"
	TagPatch   = "p"
)

// Errors returned by the decoders.
var (
	ErrMalformedMessage = errors.New("protocol: malformed message")
	ErrUnknownTag       = errors.New("protocol: unknown tag")
)

// Message is any wire message.
type Message interface {
	// Tag returns the discriminator written as the first array element.
	Tag() string
	// AppendJSON appends the encoded message to dst.
	AppendJSON(dst []byte) []byte
}

// Refresh carries the complete state at a revision.
type Refresh struct {
	Revision   uint64
	State      string
	Build      string
	ServerTime int64
}

// Patch carries the edit script from BaseRevision to BaseRevision+1.
type Patch struct {
	BaseRevision uint64
	Ops          []diff.Op
	ServerTime   int64
}

// RequestRefresh asks the server to resend a Refresh.
type RequestRefresh struct{}

// Tag implements Message.
func (Refresh) Tag() string { return TagRefresh }

// Tag implements Message.
func (Patch) Tag() string { return TagPatch }

// Tag implements Message.
func (RequestRefresh) Tag() string { return TagRefresh }

// AppendJSON implements Message.
func (m Refresh) AppendJSON(dst []byte) []byte {
	dst = append(dst, `["r",`...)
	dst = strconv.AppendUint(dst, m.Revision, 10)
	dst = append(dst, ',')
	dst = gjson.AppendJSONString(dst, m.State)
	dst = append(dst, ',')
	dst = gjson.AppendJSONString(dst, m.Build)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, m.ServerTime, 10)
	return append(dst, ']')
}

// AppendJSON implements Message.
func (m Patch) AppendJSON(dst []byte) []byte {
	dst = append(dst, `["p",`...)
	dst = strconv.AppendUint(dst, m.BaseRevision, 10)
	dst = append(dst, ",["...)
	for i, op := range m.Ops {
		if i > 0 {
			dst = append(dst, ',')
		}
		switch op.Kind {
		case diff.Insert:
			dst = gjson.AppendJSONString(dst, op.Text)
		case diff.Delete:
			dst = strconv.AppendInt(dst, -int64(op.N), 10)
		default:
			dst = strconv.AppendInt(dst, int64(op.N), 10)
		}
	}
	dst = append(dst, "],"...)
	dst = strconv.AppendInt(dst, m.ServerTime, 10)
	return append(dst, ']')
}

// AppendJSON implements Message.
func (RequestRefresh) AppendJSON(dst []byte) []byte {
	return append(dst, `["r"]`...)
}

// MarshalJSON implements json.Marshaler.
func (m Refresh) MarshalJSON() ([]byte, error) { return m.AppendJSON(nil), nil }

// MarshalJSON implements json.Marshaler.
func (m Patch) MarshalJSON() ([]byte, error) { return m.AppendJSON(nil), nil }

// MarshalJSON implements json.Marshaler.
func (m RequestRefresh) MarshalJSON() ([]byte, error) { return m.AppendJSON(nil), nil }

// Encode returns the wire form of msg.
func Encode(msg Message) []byte {
	return msg.AppendJSON(nil)
}

// Now returns the current time as wire milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Time converts wire milliseconds to a time.Time.
func Time(ms int64) time.Time {
	return time.UnixMilli(ms)
}
