// Package media finds embedded image references in post content and
// computes which references an edit dropped.
//
// Accepted grammar: an absolute http:// or https:// URL, terminated by
// whitespace, a quote, '<', '>', '(' or ')', whose path ends in .png, .jpg,
// .jpeg, .gif or .webp (any case). A query string or fragment is cut off
// before the check and is not part of the result. Trailing sentence
// punctuation is ignored.
package media

import (
	"path"
	"regexp"
	"strings"
)

var candidate = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+`)

var imageExt = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// ImageURLs returns the image URLs embedded in content, de-duplicated in
// order of first appearance.
func ImageURLs(content string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, raw := range candidate.FindAllString(content, -1) {
		u := trim(raw)
		if !IsImage(u) {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func trim(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, ".,;:!")
}

// IsImage reports whether u ends in a known image extension.
func IsImage(u string) bool {
	_, ok := imageExt[strings.ToLower(path.Ext(u))]
	return ok
}

// Difference returns the elements of a that are not in b, keeping the order
// of a and dropping duplicates.
func Difference(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, s := range b {
		drop[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := drop[s]; ok {
			continue
		}
		drop[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Union concatenates the sets, keeping the first occurrence of each element.
func Union(sets ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, set := range sets {
		for _, s := range set {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Orphaned returns the references present before an edit and absent after
// it: dropped content images plus dropped attachments.
func Orphaned(oldContent string, oldFiles []string, newContent string, newFiles []string) []string {
	return Union(
		Difference(ImageURLs(oldContent), ImageURLs(newContent)),
		Difference(oldFiles, newFiles),
	)
}

// All returns every reference held by a post.
func All(content string, files []string) []string {
	return Union(ImageURLs(content), files)
}
