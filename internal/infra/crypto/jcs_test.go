package crypto

import (
	"bytes"
	"errors"
	"testing"

	"intentd/internal/domain"
)

func TestCanonicalizeJSONSortsKeys(t *testing.T) {
	out, err := CanonicalizeJSON([]byte(`{"b":1, "a": {"d": true, "c": null}}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":{"c":null,"d":true},"b":1}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestCanonicalizeJSONIdempotent(t *testing.T) {
	input := []byte(`{"z": [1, 2.50, "x"], "a": {"k": 1e2}}`)
	first, err := CanonicalizeJSON(input)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := CanonicalizeJSON(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("not idempotent: %s vs %s", first, second)
	}
}

func TestCanonicalizeJSONRejectsTrailingData(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte(`{} {}`)); !errors.Is(err, domain.ErrCanonicalize) {
		t.Fatalf("expected ErrCanonicalize, got %v", err)
	}
}

func TestCanonicalizeValueNumberFormatting(t *testing.T) {
	cases := map[string]any{
		"0":       0,
		"1":       1.0,
		"-1.5":    -1.5,
		"100":     1e2,
		"1e+21":   1e21,
		"0.00001": 1e-5,
	}
	for want, value := range cases {
		out, err := CanonicalizeValue(value)
		if err != nil {
			t.Fatalf("canonicalize %v: %v", value, err)
		}
		if string(out) != want {
			t.Fatalf("number %v: got %s, want %s", value, out, want)
		}
	}
}

func TestCanonicalizeValueEscapesControlCharacters(t *testing.T) {
	out, err := CanonicalizeValue("a\nbc")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `"a\nbc"`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestCanonicalizeValueRejectsUnsupportedTypes(t *testing.T) {
	type opaque struct{ X int }
	for _, value := range []any{make(chan int), opaque{X: 1}, map[string]any{"blob": []byte{0x01}}} {
		if _, err := CanonicalizeValue(value); !errors.Is(err, domain.ErrCanonicalize) {
			t.Fatalf("value %T: expected ErrCanonicalize, got %v", value, err)
		}
	}
}

func TestCanonicalizeValueRejectsCyclicValue(t *testing.T) {
	inner := map[string]any{}
	outer := map[string]any{"inner": inner}
	inner["outer"] = outer
	if _, err := CanonicalizeValue(outer); !errors.Is(err, domain.ErrCanonicalize) {
		t.Fatalf("expected ErrCanonicalize for cyclic value, got %v", err)
	}
}

func TestCanonicalizeValueKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": map[string]any{"p": "q", "r": "s"}}
	b := map[string]any{"y": map[string]any{"r": "s", "p": "q"}, "x": 1}
	ca, err := CanonicalizeValue(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	cb, err := CanonicalizeValue(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("structurally equal values differ: %s vs %s", ca, cb)
	}
}
