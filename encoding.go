package profilez

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is a trace encoding.
type Format string

// Supported encodings.
const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat accepts a format name, case insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatMsgpack, "mp":
		return FormatMsgpack, nil
	default:
		return "", errors.NotValidf("trace format %q", s)
	}
}

// ContentType returns the media type used when the trace is sent over HTTP.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// FormatForContentType maps a media type back to a Format.
func FormatForContentType(contentType string) Format {
	if strings.Contains(contentType, "msgpack") {
		return FormatMsgpack
	}
	return FormatJSON
}

// Encode serializes a trace.
func Encode(trace *Trace, format Format) ([]byte, error) {
	if trace == nil {
		trace = emptyTrace()
	}
	switch format {
	case FormatJSON, "":
		data, err := json.Marshal(trace)
		return data, errors.Annotate(err, "encoding trace as json")
	case FormatMsgpack:
		data, err := msgpack.Marshal(trace)
		return data, errors.Annotate(err, "encoding trace as msgpack")
	default:
		return nil, errors.NotValidf("trace format %q", string(format))
	}
}

// Decode parses a trace produced by Encode.
func Decode(data []byte, format Format) (*Trace, error) {
	trace := &Trace{}
	var err error
	switch format {
	case FormatJSON, "":
		err = json.Unmarshal(data, trace)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, trace)
	default:
		return nil, errors.NotValidf("trace format %q", string(format))
	}
	if err != nil {
		return nil, errors.Annotatef(err, "decoding %s trace", format)
	}
	if trace.TraceEvents == nil {
		trace.TraceEvents = []TraceEvent{}
	}
	return trace, nil
}
