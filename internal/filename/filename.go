// Package filename decides what a downloaded body is called on disk.
package filename

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Fallback is used when neither the response nor the URL suggests a name.
const Fallback = "output"

var (
	quotedRe   = regexp.MustCompile(`filename\*?=["](.*?)["](;|$)`)
	unquotedRe = regexp.MustCompile(`filename\*?=(.*?)(;|$)`)
	// charset'language' prefix of an RFC 5987 ext-value.
	extValueRe = regexp.MustCompile(`^[A-Za-z0-9!#$%&+^_` + "`" + `{}~-]+'[A-Za-z0-9-]*'`)
)

// Resolve picks the on-disk name for a download. An explicit override
// wins outright, then the Content-Disposition header, then the last path
// segment of sourceURL.
func Resolve(sourceURL, override string, h http.Header) string {
	if override != "" {
		return override
	}
	if cd := h.Get("Content-Disposition"); cd != "" {
		if name, ok := FromContentDisposition(cd); ok {
			return name
		}
	}
	return FromURL(sourceURL)
}

// FromContentDisposition extracts the filename parameter of a
// Content-Disposition value. A quoted value is preferred over an unquoted
// one; the result is percent-decoded then HTML-entity-decoded. ok is false
// when nothing usable was found.
func FromContentDisposition(v string) (string, bool) {
	m := quotedRe.FindStringSubmatch(v)
	if m == nil {
		m = unquotedRe.FindStringSubmatch(v)
	}
	if m == nil {
		return "", false
	}
	raw := strings.TrimSpace(m[1])
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	raw = extValueRe.ReplaceAllString(raw, "")
	decoded, err := url.PathUnescape(raw)
	if err != nil || !usable(decoded) {
		return "", false
	}
	name := html.UnescapeString(decoded)
	if !usable(name) {
		return "", false
	}
	return clean(name)
}

// FromURL returns the last path segment of raw, or Fallback.
func FromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Fallback
	}
	name, ok := clean(path.Base(u.Path))
	if !ok || !usable(name) {
		return Fallback
	}
	return name
}

// usable reports whether s is valid UTF-8 free of control characters.
func usable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsControl) < 0
}

// clean keeps only the final element of a server supplied name so it
// cannot point outside the working directory.
func clean(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "", ".", "..":
		return "", false
	}
	return name, true
}
