package cleaner

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// cjkScripts covers Hiragana/Katakana, CJK Unified Ideographs Extension A and
// CJK Unified Ideographs.
var cjkScripts = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x30ff, Stride: 1},
		{Lo: 0x3400, Hi: 0x4dbf, Stride: 1},
		{Lo: 0x4e00, Hi: 0x9fff, Stride: 1},
	},
}

// Normalize cleans a translation cell that mixes Latin text with CJK
// annotations:
//
//  1. strip every CJK rune,
//  2. split on whitespace,
//  3. drop case-insensitive repeats, keeping the first spelling,
//  4. join with single spaces.
//
// It is pure, total and idempotent.
func Normalize(text string) string {
	// runes.Remove only ever asks for a larger buffer, which transform.String
	// handles itself, so the error is always nil.
	stripped, _, _ := transform.String(runes.Remove(runes.In(cjkScripts)), text)

	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return ""
	}

	fold := cases.Fold()
	seen := make(map[string]struct{}, len(fields))
	kept := fields[:0]
	for _, word := range fields {
		key := fold.String(word)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}

// IsCJK reports whether r falls in one of the ranges Normalize strips.
func IsCJK(r rune) bool {
	return unicode.Is(cjkScripts, r)
}
