package observ

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// ticking returns a clock advancing by step on every reading.
func ticking(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimingsRecordCounts(t *testing.T) {
	tm := &Timings{now: ticking(time.Millisecond)}
	if note := tm.Start("build").Stop(12, "edges"); note != "12 edges" {
		t.Fatalf("note = %q", note)
	}
	tm.Start("filter").Stop(0, "")
	tm.Start("linearize").Fail()

	want := []Phase{
		{Name: "build", Duration: time.Millisecond, Count: 12, Unit: "edges"},
		{Name: "filter", Duration: time.Millisecond},
		{Name: "linearize", Duration: time.Millisecond, Failed: true},
	}
	if diff := cmp.Diff(want, tm.Phases()); diff != "" {
		t.Fatalf("phases mismatch (-want +got):\n%s", diff)
	}
	if tm.Total() != 3*time.Millisecond {
		t.Fatalf("total = %v", tm.Total())
	}

	s := tm.Summary()
	for _, part := range []string{"timings:\n", "build          1.000 ms  12 edges\n", "linearize      1.000 ms  failed\n", "total          3.000 ms\n"} {
		if !strings.Contains(s, part) {
			t.Fatalf("summary lacks %q:\n%s", part, s)
		}
	}

	tm.Reset()
	if len(tm.Phases()) != 0 || tm.Total() != 0 {
		t.Fatal("reset should drop phases")
	}
}

func TestZeroTimingsUsable(t *testing.T) {
	var tm Timings
	tm.Start("compile").Stop(3, "events")
	if p := tm.Phases(); len(p) != 1 || p[0].Note() != "3 events" || p[0].Duration < 0 {
		t.Fatalf("unexpected phases %+v", p)
	}
}
