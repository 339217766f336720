// Package tracefile reads and writes recorded traces.
//
// A trace file starts with a header record naming the evaluated expression
// and the location the expression was injected at, followed by one record per
// event. Two encodings exist: newline-delimited JSON and a stream of
// MessagePack values. Readers sniff the encoding from the first byte.
package tracefile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/unicode/norm"

	"mdb/internal/event"
	"mdb/internal/graph"
)

// Version is the header version this package writes and accepts.
const Version = 1

var (
	// ErrUnsupportedVersion reports a header with a version other than Version.
	ErrUnsupportedVersion = errors.New("unsupported trace file version")
	// ErrMissingHeader reports a MessagePack stream that does not start with a header.
	ErrMissingHeader = errors.New("trace file has no header")
)

// Format selects the encoding of a trace file.
type Format uint8

const (
	// FormatNDJSON is one JSON object per line.
	FormatNDJSON Format = iota
	// FormatMsgpack is a stream of MessagePack values.
	FormatMsgpack
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatNDJSON:
		return "ndjson"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// ParseFormat converts "ndjson"/"json" or "msgpack"/"mp" into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ndjson", "json":
		return FormatNDJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatNDJSON, fmt.Errorf("invalid trace format: %q (expected: ndjson|msgpack)", s)
	}
}

// FormatForPath picks the encoding from the file extension. Unknown
// extensions get NDJSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp", ".msgpack":
		return FormatMsgpack
	default:
		return FormatNDJSON
	}
}

// Header is the first record of a trace file.
type Header struct {
	Version   int                `json:"mdb_trace" msgpack:"mdb_trace"`
	Expr      string             `json:"expr" msgpack:"expr"`
	Injection graph.FileLocation `json:"injection" msgpack:"injection"`
}

// File is a decoded trace file.
type File struct {
	Header Header
	Events []event.Event
}

// Write encodes f to w.
func Write(w io.Writer, format Format, f *File) error {
	bw := bufio.NewWriter(w)
	hdr := f.Header
	hdr.Version = Version
	var err error
	switch format {
	case FormatNDJSON:
		err = writeNDJSON(bw, &hdr, f.Events)
	case FormatMsgpack:
		err = writeMsgpack(bw, &hdr, f.Events)
	default:
		err = fmt.Errorf("unknown trace format %d", format)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func writeNDJSON(w io.Writer, hdr *Header, events []event.Event) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(hdr); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return nil
}

func writeMsgpack(w io.Writer, hdr *Header, events []event.Event) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(hdr); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return nil
}

// Read decodes a trace file in either encoding. NDJSON streams may omit the
// header; MessagePack streams may not. Labels are normalised to NFC.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &File{Header: Header{Version: Version}}, nil
		}
		return nil, err
	}
	var f *File
	if first[0] == '{' || first[0] == ' ' || first[0] == '\n' || first[0] == '\t' || first[0] == '\r' {
		f, err = readNDJSON(br)
	} else {
		f, err = readMsgpack(br)
	}
	if err != nil {
		return nil, err
	}
	normalize(f)
	return f, nil
}

func readNDJSON(r io.Reader) (*File, error) {
	dec := json.NewDecoder(r)
	f := &File{Header: Header{Version: Version}}
	for i := 0; ; i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return f, nil
			}
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if i == 0 {
			var probe struct {
				Version *int `json:"mdb_trace"`
			}
			if err := json.Unmarshal(raw, &probe); err != nil {
				return nil, fmt.Errorf("record 0: %w", err)
			}
			if probe.Version != nil {
				if err := json.Unmarshal(raw, &f.Header); err != nil {
					return nil, fmt.Errorf("header: %w", err)
				}
				if f.Header.Version != Version {
					return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Header.Version)
				}
				continue
			}
		}
		var ev event.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		f.Events = append(f.Events, ev)
	}
}

func readMsgpack(r io.Reader) (*File, error) {
	dec := msgpack.NewDecoder(r)
	f := &File{}
	if err := dec.Decode(&f.Header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingHeader, err)
	}
	if f.Header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Header.Version)
	}
	for i := 0; ; i++ {
		var ev event.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return f, nil
			}
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		f.Events = append(f.Events, ev)
	}
}

// normalize rewrites every label-bearing field to NFC so that labels typed
// at the prompt match labels emitted by the compiler.
func normalize(f *File) {
	f.Header.Expr = norm.NFC.String(f.Header.Expr)
	for i := range f.Events {
		ev := &f.Events[i]
		ev.Name = norm.NFC.String(ev.Name)
		ev.Code = norm.NFC.String(ev.Code)
		for j := range ev.Args {
			ev.Args[j] = norm.NFC.String(ev.Args[j])
		}
	}
}

// ReadFile reads the trace file at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteFile writes f to path, picking the encoding from the extension.
func WriteFile(path string, f *File) error {
	return WriteFileFormat(path, FormatForPath(path), f)
}

// WriteFileFormat writes f to path in the given encoding. The file is
// written to a temporary sibling and renamed into place.
func WriteFileFormat(path string, format Format, f *File) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mdb-trace-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := Write(tmp, format, f); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
