// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders suite results as fixed-width tables and decides
// whether two runs differ significantly.
//
// Tables are written to a LineSink one row at a time, as separate columns.
// Every column is padded to an exact width; a value wider than its column
// is replaced by a run of '*' of the column width so that overflow is
// visible instead of silently truncated.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// overflow is the filler used when a value does not fit its column.
const overflow = "*"

// LineSink receives one table row as its columns.
type LineSink func(columns ...string)

// WriterSink returns a LineSink that writes each row to w, columns
// separated by a single space.
func WriterSink(w io.Writer) LineSink {
	return func(columns ...string) {
		fmt.Fprintln(w, strings.Join(columns, " "))
	}
}

// FormatLeft left-justifies v in exactly n runes.
//
// Description:
//
//	v is converted with fmt.Sprint. A shorter value is padded with spaces
//	on the right; a longer one becomes n copies of '*'.
//
// Example:
//
//	report.FormatLeft("betty", 8) // "betty   "
//	report.FormatLeft("betty", 4) // "****"
func FormatLeft(v any, n int) string {
	s := fmt.Sprint(v)
	width := utf8.RuneCountInString(s)
	if width > n {
		return strings.Repeat(overflow, n)
	}
	return s + strings.Repeat(" ", n-width)
}

// FormatRight right-justifies v in exactly n runes. See FormatLeft.
func FormatRight(v any, n int) string {
	s := fmt.Sprint(v)
	width := utf8.RuneCountInString(s)
	if width > n {
		return strings.Repeat(overflow, n)
	}
	return strings.Repeat(" ", n-width) + s
}

// rule returns the separator cell for a column of n runes.
func rule(n int) string {
	return strings.Repeat("-", n)
}

// width is the rune width of a fixed string.
func width(s string) int {
	return utf8.RuneCountInString(s)
}
