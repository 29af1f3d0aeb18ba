// Package form locates the first HTML form on a page and turns it into a
// request that can be replayed against the form's action.
package form

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultAction replaces an empty action attribute before resolution.
const DefaultAction = "download.php"

var (
	// ErrNoFormFound is returned when the document contains no <form>.
	ErrNoFormFound = errors.New("no form found")
	// ErrMissingAction is returned when the first form has no action attribute.
	ErrMissingAction = errors.New("no form action found")
)

var (
	formSel  = cascadia.MustCompile("form")
	inputSel = cascadia.MustCompile("input[name]")
)

// Method is the HTTP method a form submits with.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Descriptor is the replayable shape of one form.
type Descriptor struct {
	// Action is always absolute.
	Action *url.URL
	Method Method
	// Fields maps input names to default values. A repeated name keeps
	// its last value.
	Fields map[string]string
}

// Values returns Fields as url.Values.
func (d *Descriptor) Values() url.Values {
	vals := make(url.Values, len(d.Fields))
	for name, val := range d.Fields {
		vals.Set(name, val)
	}
	return vals
}

// Encode returns the fields in application/x-www-form-urlencoded form.
func (d *Descriptor) Encode() string {
	return d.Values().Encode()
}

// Extract parses an HTML document and describes its first form.
// Relative actions are resolved against base, which should be the final
// URL of the response the document came from.
func Extract(r io.Reader, base *url.URL) (*Descriptor, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ExtractNode(doc, base)
}

// ExtractNode is Extract for an already parsed document.
func ExtractNode(doc *html.Node, base *url.URL) (*Descriptor, error) {
	if base == nil {
		return nil, errors.New("form: nil base url")
	}
	f := formSel.MatchFirst(doc)
	if f == nil {
		return nil, ErrNoFormFound
	}
	raw, ok := attr(f, "action")
	if !ok {
		return nil, ErrMissingAction
	}
	action, err := ResolveAction(base, raw)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{
		Action: action,
		Method: MethodGet,
		Fields: make(map[string]string),
	}
	if m, ok := attr(f, "method"); ok {
		d.Method = ParseMethod(m)
	}
	for _, in := range inputSel.MatchAll(f) {
		name, _ := attr(in, "name")
		val, _ := attr(in, "value")
		d.Fields[name] = val
	}
	return d, nil
}

// ResolveAction resolves a form action against base. An empty action
// becomes DefaultAction. The fragment is dropped since it never reaches
// the server.
func ResolveAction(base *url.URL, action string) (*url.URL, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		action = DefaultAction
	}
	u, err := base.Parse(escapeStrayPercent(action))
	if err != nil {
		return nil, fmt.Errorf("resolve form action %q: %w", action, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("resolve form action %q: result %q is not absolute", action, u)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// escapeStrayPercent turns a '%' that does not start a %XX escape into
// "%25" so the server decodes it back to a literal '%'.
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// ParseMethod classifies a method attribute value. Only "get", in any
// case, is GET; every other value is POST.
func ParseMethod(v string) Method {
	if strings.EqualFold(v, "get") {
		return MethodGet
	}
	return MethodPost
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}
