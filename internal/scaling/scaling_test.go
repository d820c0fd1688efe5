package scaling

import (
	"errors"
	"strconv"
	"testing"
)

func TestBaseToMasq(t *testing.T) {
	tests := []struct {
		name        string
		input       int
		low, high   int
		reverse     bool
		want        int
		wantClamped bool
	}{
		{name: "low end", input: 0, low: 0, high: 255, want: 0},
		{name: "high end", input: 255, low: 0, high: 255, want: 100},
		{name: "midpoint of byte range", input: 128, low: 0, high: 255, want: 50},
		{name: "low end reversed", input: 0, low: 0, high: 255, reverse: true, want: 100},
		{name: "high end reversed", input: 255, low: 0, high: 255, reverse: true, want: 0},
		{name: "offset range", input: 15, low: 10, high: 20, want: 50},
		{name: "negative range", input: -5, low: -10, high: 0, want: 50},
		{name: "below range clamps", input: -3, low: 0, high: 10, want: 0, wantClamped: true},
		{name: "above range clamps", input: 300, low: 0, high: 255, want: 100, wantClamped: true},
		{name: "above range clamps reversed", input: 300, low: 0, high: 255, reverse: true, want: 0, wantClamped: true},
		{name: "degenerate range", input: 5, low: 10, high: 10, want: 0},
		{name: "inverted range", input: 5, low: 20, high: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := BaseToMasq(tt.input, tt.low, tt.high, tt.reverse)
			if got != tt.want {
				t.Errorf("BaseToMasq(%d, %d, %d, %v) = %d, want %d",
					tt.input, tt.low, tt.high, tt.reverse, got, tt.want)
			}
			if clamped != tt.wantClamped {
				t.Errorf("clamped = %v, want %v", clamped, tt.wantClamped)
			}
		})
	}
}

func TestBaseToMasq_OutputWithinPercentRange(t *testing.T) {
	ranges := [][2]int{{0, 1}, {0, 10}, {0, 100}, {0, 255}, {-50, 50}, {3, 1000}, {1, 65535}}

	for _, r := range ranges {
		low, high := r[0], r[1]
		step := 1
		if high-low > 2000 {
			step = (high - low) / 2000
		}
		for x := low; x <= high; x += step {
			for _, rev := range []bool{false, true} {
				got, clamped := BaseToMasq(x, low, high, rev)
				if got < MinPercent || got > MaxPercent {
					t.Fatalf("BaseToMasq(%d, %d, %d, %v) = %d, outside 0-100", x, low, high, rev, got)
				}
				if clamped {
					t.Fatalf("BaseToMasq(%d, %d, %d, %v) reported clamping for in-range input", x, low, high, rev)
				}
			}
		}
	}
}

func TestMasqToBase(t *testing.T) {
	tests := []struct {
		name      string
		input     int
		low, high int
		reverse   bool
		format    ValueFormat
		want      string
	}{
		{name: "hex midpoint", input: 50, low: 0, high: 200, format: FormatHexadecimal, want: "64"},
		{name: "hex zero padded", input: 5, low: 0, high: 100, format: FormatHexadecimal, want: "05"},
		{name: "decimal full", input: 100, low: 0, high: 255, format: FormatDecimal, want: "255"},
		{name: "decimal zero", input: 0, low: 0, high: 255, format: FormatDecimal, want: "0"},
		{name: "decimal offset", input: 50, low: 10, high: 20, format: FormatDecimal, want: "15"},
		{name: "decimal reversed", input: 0, low: 0, high: 255, reverse: true, format: FormatDecimal, want: "255"},
		{name: "decimal reversed full", input: 100, low: 0, high: 255, reverse: true, format: FormatDecimal, want: "0"},
		{name: "octal", input: 100, low: 0, high: 64, format: FormatOctal, want: "0o100"},
		{name: "input above 100 clamps", input: 150, low: 0, high: 10, format: FormatDecimal, want: "10"},
		{name: "input below 0 clamps", input: -20, low: 0, high: 10, format: FormatDecimal, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MasqToBase(tt.input, tt.low, tt.high, tt.reverse, tt.format)
			if err != nil {
				t.Fatalf("MasqToBase() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MasqToBase(%d, %d, %d, %v, %s) = %q, want %q",
					tt.input, tt.low, tt.high, tt.reverse, tt.format, got, tt.want)
			}
		})
	}
}

func TestMasqToBase_UnknownFormat(t *testing.T) {
	got, err := MasqToBase(50, 0, 100, false, ValueFormat("binary"))
	if !errors.Is(err, ErrUnknownValueFormat) {
		t.Fatalf("MasqToBase() error = %v, want ErrUnknownValueFormat", err)
	}
	if got != "" {
		t.Errorf("MasqToBase() = %q, want empty result", got)
	}
}

func TestRoundTrip(t *testing.T) {
	ranges := [][2]int{{0, 10}, {0, 99}, {0, 100}, {0, 255}, {-40, 60}, {16, 235}, {0, 1000}}

	for _, r := range ranges {
		low, high := r[0], r[1]
		tol := Tolerance(low, high)
		for _, rev := range []bool{false, true} {
			for x := low; x <= high; x++ {
				masq, _ := BaseToMasq(x, low, high, rev)
				text, err := MasqToBase(masq, low, high, rev, FormatDecimal)
				if err != nil {
					t.Fatalf("MasqToBase() error = %v", err)
				}
				back := mustAtoi(t, text)
				if diff := abs(back - x); diff > tol {
					t.Fatalf("round trip of %d in [%d,%d] reverse=%v gave %d (diff %d > %d)",
						x, low, high, rev, back, diff, tol)
				}
			}
		}
	}
}

func TestRoundTrip_SmallRangeWithinOne(t *testing.T) {
	for x := 0; x <= 100; x++ {
		masq, _ := BaseToMasq(x, 0, 100, false)
		text, err := MasqToBase(masq, 0, 100, false, FormatDecimal)
		if err != nil {
			t.Fatalf("MasqToBase() error = %v", err)
		}
		if diff := abs(mustAtoi(t, text) - x); diff > 1 {
			t.Fatalf("round trip of %d differs by %d", x, diff)
		}
	}
}

func TestReverseIsInvolution(t *testing.T) {
	for v := MinPercent; v <= MaxPercent; v++ {
		if got := reversePercent(reversePercent(v)); got != v {
			t.Fatalf("reversePercent twice on %d = %d", v, got)
		}
	}

	low, high := 16, 235
	for v := low; v <= high; v++ {
		if got := reverseBase(reverseBase(v, low, high), low, high); got != v {
			t.Fatalf("reverseBase twice on %d = %d", v, got)
		}
	}
}

func TestReverseMirrorsForward(t *testing.T) {
	for x := 0; x <= 255; x++ {
		fwd, _ := BaseToMasq(x, 0, 255, false)
		rev, _ := BaseToMasq(x, 0, 255, true)
		if fwd+rev != MaxPercent {
			t.Fatalf("BaseToMasq(%d) forward %d + reverse %d != 100", x, fwd, rev)
		}
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		v      int
		format ValueFormat
		want   string
	}{
		{255, FormatHexadecimal, "ff"},
		{0, FormatHexadecimal, "00"},
		{4096, FormatHexadecimal, "1000"},
		{8, FormatOctal, "0o10"},
		{42, FormatDecimal, "42"},
		{-7, FormatDecimal, "-7"},
	}
	for _, tt := range tests {
		got, err := Render(tt.v, tt.format)
		if err != nil {
			t.Fatalf("Render(%d, %s) error = %v", tt.v, tt.format, err)
		}
		if got != tt.want {
			t.Errorf("Render(%d, %s) = %q, want %q", tt.v, tt.format, got, tt.want)
		}
	}
}

func TestValueFormat_Valid(t *testing.T) {
	for _, f := range []ValueFormat{FormatDecimal, FormatHexadecimal, FormatOctal} {
		if !f.Valid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if ValueFormat("").Valid() {
		t.Error("empty format should be invalid")
	}
}

func TestTolerance(t *testing.T) {
	tests := []struct {
		low, high, want int
	}{
		{0, 10, 1},
		{0, 100, 1},
		{0, 101, 2},
		{0, 255, 3},
		{0, 1000, 10},
	}
	for _, tt := range tests {
		if got := Tolerance(tt.low, tt.high); got != tt.want {
			t.Errorf("Tolerance(%d, %d) = %d, want %d", tt.low, tt.high, got, tt.want)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{6, 3, 2},
		{-6, 3, -2},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	if err != nil {
		t.Fatalf("not a decimal number: %q", s)
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
