package syncx

import "testing"

func TestParseTimeToMs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{"empty", "", 0, false},
		{"numeric ms", "1700000000000", 1700000000000, true},
		{"rfc3339", "2023-11-14T22:13:20Z", 1700000000000, true},
		{"garbage", "not-a-time", 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := ParseTimeToMs(c.in)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestGetBoolTolerant(t *testing.T) {
	m := map[string]any{"a": true, "b": float64(1), "c": float64(0), "d": "1", "e": "nope"}
	if v, ok := GetBool(m, "a"); !ok || !v {
		t.Fatalf("a: got %v %v", v, ok)
	}
	if v, ok := GetBool(m, "b"); !ok || !v {
		t.Fatalf("b: got %v %v", v, ok)
	}
	if v, ok := GetBool(m, "c"); !ok || v {
		t.Fatalf("c: got %v %v", v, ok)
	}
	if v, ok := GetBool(m, "d"); !ok || !v {
		t.Fatalf("d: got %v %v", v, ok)
	}
	if v, ok := GetBool(m, "e"); !ok || v {
		t.Fatalf("e: got %v %v", v, ok)
	}
	if _, ok := GetBool(m, "missing"); ok {
		t.Fatalf("missing key should report ok=false")
	}
}

func TestEnsureMonotonicTimestamp(t *testing.T) {
	future := NowMs() + 1_000_000
	if got := EnsureMonotonicTimestamp(future); got <= future {
		t.Fatalf("expected strictly greater than %d, got %d", future, got)
	}
}
