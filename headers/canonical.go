/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package headers

// CanonicalKey returns the canonical (title-case, e.g. "content-length" ->
// "Content-Length") form of a header key. Ported from the teacher's
// hdr.CanonicalHeaderKey / canonicalMIMEHeaderKey.
func CanonicalKey(s string) string {
	b := []byte(s)
	upper := true
	changed := false
	for i, c := range b {
		if !validHeaderFieldByte(c) {
			return s
		}
		if upper && 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
			changed = true
		} else if !upper && 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
		upper = c == '-'
	}
	if !changed {
		return s
	}
	return string(b)
}

// TitleCaseKey returns s with every hyphen-separated segment's first byte
// upper-cased and the rest lower-cased, used for the "title-case-headers"
// interop option (spec §4.D) instead of the canonical MIME form above (which
// happens to coincide for ASCII-only names but is kept distinct so future
// tweaks to one don't silently affect the other).
func TitleCaseKey(s string) string {
	return CanonicalKey(s)
}

func validHeaderFieldByte(b byte) bool {
	return int(b) < len(isTokenTable) && isTokenTable[b]
}

// ValidFieldName reports whether name contains only RFC 7230 tchar bytes.
func ValidFieldName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !validHeaderFieldByte(name[i]) {
			return false
		}
	}
	return true
}

// ValidFieldValue reports whether the bytes of a header value are all
// visible ASCII, HT, SP, or obs-text, per spec §4.C.
func ValidFieldValue(value string) bool {
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b == ' ' || b == '\t' {
			continue
		}
		if (b >= 0x21 && b <= 0x7e) || b >= 0x80 {
			continue
		}
		return false
	}
	return true
}

// isTokenTable is a copy of the RFC 7230 tchar table, ported from
// hdr/utils_header.go.
var isTokenTable = [127]bool{
	'!':  true,
	'#':  true,
	'$':  true,
	'%':  true,
	'&':  true,
	'\'': true,
	'*':  true,
	'+':  true,
	'-':  true,
	'.':  true,
	'0':  true,
	'1':  true,
	'2':  true,
	'3':  true,
	'4':  true,
	'5':  true,
	'6':  true,
	'7':  true,
	'8':  true,
	'9':  true,
	'A':  true,
	'B':  true,
	'C':  true,
	'D':  true,
	'E':  true,
	'F':  true,
	'G':  true,
	'H':  true,
	'I':  true,
	'J':  true,
	'K':  true,
	'L':  true,
	'M':  true,
	'N':  true,
	'O':  true,
	'P':  true,
	'Q':  true,
	'R':  true,
	'S':  true,
	'T':  true,
	'U':  true,
	'V':  true,
	'W':  true,
	'X':  true,
	'Y':  true,
	'Z':  true,
	'^':  true,
	'_':  true,
	'`':  true,
	'a':  true,
	'b':  true,
	'c':  true,
	'd':  true,
	'e':  true,
	'f':  true,
	'g':  true,
	'h':  true,
	'i':  true,
	'j':  true,
	'k':  true,
	'l':  true,
	'm':  true,
	'n':  true,
	'o':  true,
	'p':  true,
	'q':  true,
	'r':  true,
	's':  true,
	't':  true,
	'u':  true,
	'v':  true,
	'w':  true,
	'x':  true,
	'y':  true,
	'z':  true,
	'|':  true,
	'~':  true,
}
