package ics

import (
	"strings"
	"unicode/utf8"
)

const (
	crlf = "\r\n"
	// maxLineOctets is the content line limit before folding.
	maxLineOctets = 75
	// unfoldedLineLength disables golang-ical's own folding so lines can be
	// rewritten before they are folded here.
	unfoldedLineLength = 1 << 30
)

var paramValueEscaper = strings.NewReplacer(
	"^", "^^",
	"\r\n", "^n",
	"\n", "^n",
	`"`, "^'",
)

// paramValue renders a parameter value. Values holding ',' ';' or ':'
// become a quoted-string; DQUOTE and newlines use caret encoding.
func paramValue(v string) string {
	v = paramValueEscaper.Replace(v)
	if strings.ContainsAny(v, ",;:") {
		return `"` + v + `"`
	}
	return v
}

// structuredLocationLine renders X-APPLE-STRUCTURED-LOCATION with its
// parameters in the same sorted order golang-ical uses.
func structuredLocationLine(g *Geo) string {
	var b strings.Builder
	b.WriteString(string(structuredLocationProperty))
	b.WriteString(";VALUE=URI")
	b.WriteString(";X-ADDRESS=" + paramValue(g.Address))
	b.WriteString(";X-APPLE-RADIUS=" + formatFloat(g.Radius))
	b.WriteString(";X-TITLE=" + paramValue(g.Title))
	b.WriteString(":geo:" + formatFloat(g.Latitude) + "," + formatFloat(g.Longitude))
	return b.String()
}

// fold splits a content line into 75-octet chunks on rune boundaries.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}
	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString(crlf + " ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}
