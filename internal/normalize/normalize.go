// Package normalize collapses irregular whitespace in extracted text while
// keeping line and paragraph boundaries intact.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// breakRe matches one line break in any of the CRLF, CR or LF conventions.
var breakRe = regexp.MustCompile(`\r\n|\r|\n`)

// runRe matches a run of two or more whitespace characters inside a line.
var runRe = regexp.MustCompile(`[\s\p{Zs}]{2,}`)

// Text rewrites every line of text: trailing whitespace is stripped and each
// run of 2+ whitespace characters becomes a single space. The number and
// order of lines never change, so blank paragraph separators survive.
// Line breaks come out as "\n" whatever convention the input used.
func Text(text string) string {
	lines := breakRe.Split(text, -1)
	for i, line := range lines {
		lines[i] = Line(line)
	}
	return strings.Join(lines, "\n")
}

// Line normalises a single line.
func Line(line string) string {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	return runRe.ReplaceAllString(line, " ")
}
