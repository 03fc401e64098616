package stdio

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ---------------------------------------------------------------------------
// Case conversion and normalisation
//
// Buffer operations take the first numChars characters of buf, store as
// much of the result as fits, and return the full result length.
// ---------------------------------------------------------------------------

func (t *Terminal) CharToLower(ch uint32) uint32 { return latin1Case(ch, unicode.ToLower) }
func (t *Terminal) CharToUpper(ch uint32) uint32 { return latin1Case(ch, unicode.ToUpper) }

// latin1Case maps ch when both it and the result are Latin-1.
func latin1Case(ch uint32, fn func(rune) rune) uint32 {
	if ch > 0xFF {
		return ch
	}
	if c := uint32(fn(rune(ch))); c <= 0xFF {
		return c
	}
	return ch
}

func (t *Terminal) BufferToLowerCaseUni(buf []uint32, numChars uint32) uint32 {
	return storeRunes(buf, t.lower.String(prefix(buf, numChars)))
}

func (t *Terminal) BufferToUpperCaseUni(buf []uint32, numChars uint32) uint32 {
	return storeRunes(buf, t.upper.String(prefix(buf, numChars)))
}

// BufferToTitleCaseUni title-cases the first character only.
func (t *Terminal) BufferToTitleCaseUni(buf []uint32, numChars uint32, lowerRest bool) uint32 {
	s := []rune(prefix(buf, numChars))
	if len(s) == 0 {
		return 0
	}
	rest := string(s[1:])
	if lowerRest {
		rest = t.lower.String(rest)
	}
	return storeRunes(buf, t.title.String(string(s[0]))+rest)
}

func (t *Terminal) BufferCanonDecomposeUni(buf []uint32, numChars uint32) uint32 {
	return storeRunes(buf, norm.NFD.String(prefix(buf, numChars)))
}

func (t *Terminal) BufferCanonNormalizeUni(buf []uint32, numChars uint32) uint32 {
	return storeRunes(buf, norm.NFC.String(prefix(buf, numChars)))
}

func prefix(buf []uint32, n uint32) string {
	return runeString(buf[:min(int(n), len(buf))])
}

func storeRunes(buf []uint32, s string) uint32 {
	n := 0
	for _, r := range s {
		if n < len(buf) {
			buf[n] = uint32(r)
		}
		n++
	}
	return uint32(n)
}
