package tracefile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mdb/internal/event"
	"mdb/internal/graph"
)

func sampleFile() *File {
	stdin := graph.FileLocation{Name: "mdb-stdin", Row: 3, Col: 1}
	src := graph.FileLocation{Name: "fib.hpp", Row: 10, Col: 8}
	return &File{
		Header: Header{Version: Version, Expr: "fib<2>::type", Injection: stdin},
		Events: []event.Event{
			event.TemplateBegin("fib<2>", false, stdin, src, 0.5),
			event.TemplateBegin("fib<1>", false, src, src, 0.75),
			event.TemplateEnd(1),
			event.MacroExpansionBegin("ADD", []string{"x", "y"}, src, src, 1.25),
			event.Rescanning("x + y", 1.5),
			event.MacroExpansionEnd(1.75),
			event.TemplateEnd(2),
			event.EvaluationEnd(graph.Result{Kind: graph.ResultType, Text: "int"}),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatNDJSON, FormatMsgpack} {
		t.Run(format.String(), func(t *testing.T) {
			want := sampleFile()
			var buf bytes.Buffer
			if err := Write(&buf, format, want); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buf)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNDJSONLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatNDJSON, sampleFile()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], `{"mdb_trace":1,"expr":"fib<2>::type"`) {
		t.Fatalf("unexpected header line %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], `{"kind":"template_begin"`) {
		t.Fatalf("unexpected event line %s", lines[1])
	}
}

func TestHeaderlessNDJSON(t *testing.T) {
	in := `{"kind":"template_begin","ts":1,"name":"A","point_of_event":{"file":"f","row":1,"col":1},"source_location":{"file":"f","row":2,"col":1}}
{"kind":"template_end","ts":2}
{"kind":"evaluation_end","ts":0,"result_kind":"type","code":"A"}
`
	f, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Header.Version != Version || f.Header.Expr != "" {
		t.Fatalf("unexpected header %+v", f.Header)
	}
	if len(f.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(f.Events))
	}
	if f.Events[0].Kind != event.KindTemplateBegin || f.Events[0].SourceLocation.Row != 2 {
		t.Fatalf("unexpected first event %+v", f.Events[0])
	}
}

func TestUnsupportedVersion(t *testing.T) {
	_, err := Read(strings.NewReader(`{"mdb_trace":7,"expr":"int"}` + "\n"))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestUnknownKind(t *testing.T) {
	_, err := Read(strings.NewReader(`{"kind":"bogus","ts":1}` + "\n"))
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestNormalizesLabels(t *testing.T) {
	in := "{\"mdb_trace\":1,\"expr\":\"cafe\u0301\"}\n" +
		"{\"kind\":\"template_begin\",\"ts\":1,\"name\":\"tag<cafe\u0301>\"}\n"
	f, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Header.Expr != "caf\u00e9" {
		t.Fatalf("expr not normalised: %q", f.Header.Expr)
	}
	if f.Events[0].Name != "tag<caf\u00e9>" {
		t.Fatalf("name not normalised: %q", f.Events[0].Name)
	}
}

func TestNegativeRowsRejected(t *testing.T) {
	f := &File{Header: Header{Injection: graph.FileLocation{Name: "x", Row: -1}}}
	for _, format := range []Format{FormatNDJSON, FormatMsgpack} {
		var buf bytes.Buffer
		if err := Write(&buf, format, f); err == nil {
			t.Fatalf("%v: expected error for negative row", format)
		}
	}
	in := `{"mdb_trace":1,"expr":"int","injection":{"file":"x","row":-1,"col":1}}` + "\n"
	if _, err := Read(strings.NewReader(in)); !errors.Is(err, graph.ErrNegativePosition) {
		t.Fatalf("expected ErrNegativePosition, got %v", err)
	}
}

func TestEmptyInput(t *testing.T) {
	f, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(f.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(f.Events))
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"trace.ndjson", FormatNDJSON},
		{"trace.json", FormatNDJSON},
		{"trace", FormatNDJSON},
		{"trace.mp", FormatMsgpack},
		{"dir/trace.MSGPACK", FormatMsgpack},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Fatalf("FormatForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWriteFileReadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"t.ndjson", "t.mp"} {
		path := filepath.Join(dir, name)
		want := sampleFile()
		if err := WriteFile(path, want); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
}
