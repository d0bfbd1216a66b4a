package ttml

import (
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
)

// xmlNamespace is the namespace bound to the reserved "xml" prefix.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// brMarkup matches line-break markup that survived as literal text, e.g.
// an escaped "&lt;br/&gt;" inside a cue.
var brMarkup = regexp.MustCompile(`(?i)<br\s*/?>`)

// attr returns the value of the attribute with the given local name,
// ignoring its prefix. The boolean is false when the attribute is absent.
func attr(n *xmlquery.Node, local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// documentElement returns the root element of a parsed document.
func documentElement(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// spacePreserved reports whether the nearest xml:space attribute on n or
// one of its ancestors is "preserve".
func spacePreserved(n *xmlquery.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Name.Local == "space" && (a.Name.Space == "xml" || a.Name.Space == xmlNamespace) {
				return strings.TrimSpace(a.Value) == "preserve"
			}
		}
	}
	return false
}

// cueText extracts the body of a cue element: the concatenated descendant
// text with <br> elements (and literal <br> markup) turned into "\n".
// Source newlines are kept as line breaks. Runs of spaces and tabs collapse
// to a single space unless xml:space="preserve"; every line is trimmed and
// blank lines are dropped, since a blank line would end the SRT block early.
func cueText(p *xmlquery.Node) string {
	preserve := spacePreserved(p)

	var sb strings.Builder
	collectText(&sb, p, preserve)

	raw := brMarkup.ReplaceAllString(sb.String(), "\n")
	lines := strings.Split(raw, "\n")
	out := lines[:0]
	for _, line := range lines {
		if !preserve {
			line = collapseSpace(line)
		}
		line = strings.Trim(line, " \t\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// collectText appends the text content of n's subtree to sb.
func collectText(sb *strings.Builder, n *xmlquery.Node, preserve bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if preserve {
				sb.WriteString(strings.ReplaceAll(c.Data, "\r\n", "\n"))
			} else {
				sb.WriteString(collapseSpace(c.Data))
			}
		case xmlquery.ElementNode:
			switch strings.ToLower(c.Data) {
			case "br":
				sb.WriteString("\n")
			case "metadata":
				// Descriptive metadata is never displayed.
			default:
				collectText(sb, c, spacePreserved(c))
			}
		}
	}
}

// collapseSpace replaces every run of spaces, tabs and carriage returns
// with a single space. Newlines are left alone.
func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r':
			if !inSpace {
				sb.WriteByte(' ')
			}
			inSpace = true
		default:
			sb.WriteRune(r)
			inSpace = false
		}
	}
	return sb.String()
}
