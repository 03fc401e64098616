package stdio

import "testing"

func TestCharCase(t *testing.T) {
	term, _ := newTerminal("", Options{})
	tests := []struct {
		ch, lower, upper uint32
	}{
		{'A', 'a', 'A'},
		{'z', 'z', 'Z'},
		{0xE4, 0xE4, 0xC4},    // a with diaeresis
		{0xFF, 0xFF, 0xFF},    // uppercases outside Latin-1
		{0xDF, 0xDF, 0xDF},    // sharp s
		{0x3A3, 0x3A3, 0x3A3}, // not Latin-1
	}
	for _, tt := range tests {
		if got := term.CharToLower(tt.ch); got != tt.lower {
			t.Errorf("CharToLower($%X) = $%X, want $%X", tt.ch, got, tt.lower)
		}
		if got := term.CharToUpper(tt.ch); got != tt.upper {
			t.Errorf("CharToUpper($%X) = $%X, want $%X", tt.ch, got, tt.upper)
		}
	}
}

func TestBufferCase(t *testing.T) {
	term, _ := newTerminal("", Options{})
	tests := []struct {
		name string
		in   string
		cap  int
		fn   func(buf []uint32, n uint32) uint32
		want string
		n    uint32
	}{
		{"upper", "straße", 10, term.BufferToUpperCaseUni, "STRASSE", 7},
		{"upper overflow", "straße", 6, term.BufferToUpperCaseUni, "STRASS", 7},
		{"lower", "ÀBÇ", 3, term.BufferToLowerCaseUni, "àbç", 3},
		{"title", "hELLO", 5, func(b []uint32, n uint32) uint32 { return term.BufferToTitleCaseUni(b, n, false) }, "HELLO", 5},
		{"title lower rest", "hELLO", 5, func(b []uint32, n uint32) uint32 { return term.BufferToTitleCaseUni(b, n, true) }, "Hello", 5},
		{"decompose", "\u00e9", 4, term.BufferCanonDecomposeUni, "e\u0301", 2},
		{"normalize", "e\u0301", 4, term.BufferCanonNormalizeUni, "\u00e9", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := codePoints(tt.in)
			buf := make([]uint32, tt.cap)
			copy(buf, in)
			n := tt.fn(buf, uint32(len(in)))
			if n != tt.n {
				t.Errorf("length = %d, want %d", n, tt.n)
			}
			if got := runeString(buf[:min(int(n), len(buf))]); got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitleCaseEmpty(t *testing.T) {
	term, _ := newTerminal("", Options{})
	if n := term.BufferToTitleCaseUni(make([]uint32, 4), 0, true); n != 0 {
		t.Errorf("empty title case = %d", n)
	}
}
