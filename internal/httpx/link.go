package httpx

import (
	"net/http"
	"strings"
)

const linkHeader = "Link"

// NextLink returns the URL of the `rel="next"` entry of an RFC 8288 Link header,
// or "" when there is none. Every Link header line is considered.
//
//	Link: <https://x/api/v1/courses?page=2>; rel="current", <https://x/api/v1/courses?page=3>; rel="next"
func NextLink(h http.Header) string {
	return FindLink(h, "next")
}

// FindLink returns the target of the first Link entry whose rel list contains rel.
func FindLink(h http.Header, rel string) string {
	for _, line := range h.Values(linkHeader) {
		for _, entry := range splitLinks(line) {
			target, rels, ok := parseLink(entry)
			if !ok {
				continue
			}
			for _, r := range rels {
				if strings.EqualFold(r, rel) {
					return target
				}
			}
		}
	}
	return ""
}

// splitLinks splits on commas that are outside <...>, so URLs carrying commas survive.
func splitLinks(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func parseLink(entry string) (string, []string, bool) {
	entry = strings.TrimSpace(entry)
	if !strings.HasPrefix(entry, "<") {
		return "", nil, false
	}
	end := strings.Index(entry, ">")
	if end < 0 {
		return "", nil, false
	}
	target := strings.TrimSpace(entry[1:end])

	var rels []string
	for _, param := range strings.Split(entry[end+1:], ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "rel") {
			continue
		}
		v = strings.Trim(strings.TrimSpace(v), `"`)
		rels = append(rels, strings.Fields(v)...)
	}
	return target, rels, target != ""
}
