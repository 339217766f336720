package command

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustMap(t *testing.T, keys ...[]string) *Map {
	t.Helper()
	cmds := make([]Command, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, Command{Keys: k})
	}
	m, err := NewMap(cmds)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	return m
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		keys     [][]string
		line     string
		want     []string // nil when the lookup must fail
		wantArgs string
	}{
		{"exact", [][]string{{"asd"}, {"efg"}}, "efg", []string{"efg"}, ""},
		{"unique prefix", [][]string{{"asd"}, {"efg"}}, "a", []string{"asd"}, ""},
		{"longer prefix disambiguates", [][]string{{"asd"}, {"afg"}}, "af", []string{"afg"}, ""},
		{"exact alias wins over prefix", [][]string{{"asd"}, {"a"}}, "a", []string{"a"}, ""},
		{"prefix of longer alias", [][]string{{"asd"}, {"a"}}, "as", []string{"asd"}, ""},
		{"empty line", [][]string{{"asd"}, {"asf"}}, "", nil, ""},
		{"ambiguous", [][]string{{"asd"}, {"asf"}}, "as", nil, ""},
		{"unknown", [][]string{{"asd"}, {"asf"}}, "x", nil, ""},
		{"second alias", [][]string{{"asd", "xyz"}, {"asf"}}, "xyz", []string{"asd", "xyz"}, ""},
		{"several aliases one command", [][]string{{"ft", "forwardtrace", "fff"}, {"asf"}}, "f", []string{"ft", "forwardtrace", "fff"}, ""},
		{"prefix shared by two commands", [][]string{{"ft", "forwardtrace"}, {"fff"}}, "f", nil, ""},
		{"argument", [][]string{{"asf"}}, "a abc", []string{"asf"}, "abc"},
		{"argument spacing", [][]string{{"asf"}}, "asf   abc", []string{"asf"}, "abc"},
		{"inner spaces kept", [][]string{{"asf"}}, "as   ab c", []string{"asf"}, "ab c"},
		{"trailing spaces", [][]string{{"asf"}}, "a   ", []string{"asf"}, ""},
		{"leading spaces", [][]string{{"asf"}}, "  asf 1", []string{"asf"}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMap(t, tt.keys...)
			c, args, ok := m.Lookup(tt.line)
			if tt.want == nil {
				if ok {
					t.Fatalf("Lookup(%q) selected %v", tt.line, c.Keys)
				}
				return
			}
			if !ok {
				t.Fatalf("Lookup(%q) failed", tt.line)
			}
			if diff := cmp.Diff(tt.want, c.Keys); diff != "" {
				t.Fatalf("keys (-want +got):\n%s", diff)
			}
			if args != tt.wantArgs {
				t.Fatalf("args = %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestNewMapRejectsBadTables(t *testing.T) {
	bad := [][]Command{
		{{}},
		{{Keys: []string{""}}},
		{{Keys: []string{"a b"}}},
		{{Keys: []string{"a"}}, {Keys: []string{"b", "a"}}},
	}
	for i, cmds := range bad {
		if _, err := NewMap(cmds); err == nil {
			t.Fatalf("table #%d accepted", i)
		}
	}
}

func TestSynopsis(t *testing.T) {
	c := Command{Keys: []string{"forwardtrace", "ft"}, Usage: "[full] [n]"}
	if got := c.Synopsis(); got != "forwardtrace|ft [full] [n]" {
		t.Fatalf("Synopsis() = %q", got)
	}
	if got := (Command{Keys: []string{"quit"}}).Synopsis(); got != "quit" {
		t.Fatalf("Synopsis() = %q", got)
	}
}

func TestDispatcherRepeat(t *testing.T) {
	var calls []string
	record := func(name string) Handler {
		return func(_ context.Context, args string) error {
			calls = append(calls, name+"("+args+")")
			return nil
		}
	}
	m, err := NewMap([]Command{
		{Keys: []string{"step"}, Repeatable: true, Handler: record("step")},
		{Keys: []string{"evaluate"}, Handler: record("evaluate")},
	})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(m)
	ctx := context.Background()

	lines := []string{"", "step 2", "", "  ", "evaluate int", "", "s", "nope", ""}
	var errs []error
	for _, line := range lines {
		errs = append(errs, d.Dispatch(ctx, line))
	}

	want := []string{"step(2)", "step(2)", "step(2)", "evaluate(int)", "step()"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if !errors.Is(errs[7], ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", errs[7])
	}
	if errs[8] != nil {
		t.Fatalf("blank line after a failed lookup must be a no-op, got %v", errs[8])
	}
	if diff := cmp.Diff([]string{"step 2", "evaluate int", "s", "nope"}, d.History()); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
}
