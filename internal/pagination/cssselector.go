package pagination

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// cssSpecialChars are the characters CSS requires escaping in a class or id
// selector when they appear in an attribute value, per get_css_selector's
// escaping of class names like "col-6/12".
var cssSpecialChars = "!\"#$%&'()*+,./:;<=>?@[\\]^`{|}~"

// cssSelector builds a selector for tag by climbing its ancestor chain to
// the document root, joining each step with ">". An ancestor with an id
// short-circuits the climb since ids are unique. Same-tag-and-class
// siblings are disambiguated with :nth-of-type.
func cssSelector(tag *html.Node) string {
	var segments []string
	for n := tag; n != nil && n.Parent != nil; n = n.Parent {
		seg := selectorSegment(n)
		segments = append([]string{seg}, segments...)
		if id := attr(n, "id"); id != "" {
			break
		}
	}
	return strings.Join(segments, " > ")
}

func selectorSegment(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return "#" + escapeCSSToken(id)
	}

	seg := n.Data
	if classes := classList(n); len(classes) > 0 {
		seg += formatClassList(classes)
	}

	if n.Parent == nil {
		return seg
	}
	if nth, ok := nthOfType(n); ok {
		seg += fmt.Sprintf(":nth-of-type(%d)", nth)
	}
	return seg
}

// nthOfType returns n's 1-indexed position among same-tag siblings sharing
// n's full class list, and whether more than one such sibling exists (a
// selector only needs disambiguating when it would otherwise be ambiguous).
func nthOfType(n *html.Node) (int, bool) {
	classes := strings.Join(classList(n), " ")
	count := 0
	position := 0
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode || sib.Data != n.Data {
			continue
		}
		if strings.Join(classList(sib), " ") != classes {
			continue
		}
		count++
		if sib == n {
			position = count
		}
	}
	return position, count > 1
}

func classList(n *html.Node) []string {
	raw := attr(n, "class")
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

// formatClassList joins classes into a ".a.b" suffix, escaping any
// character CSS wouldn't accept literally in a class selector.
func formatClassList(classes []string) string {
	var b strings.Builder
	for _, c := range classes {
		b.WriteByte('.')
		b.WriteString(escapeCSSToken(c))
	}
	return b.String()
}

func escapeCSSToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		if strings.ContainsRune(cssSpecialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
