// Package docs exposes classes and methods of the image as editable
// documents addressed by webside: URIs.
package docs

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URI scheme of image documents.
const Scheme = "webside"

// Ref identifies the code element behind a document.
type Ref struct {
	Class    string
	Selector string // empty for a class definition
}

// IsMethod reports whether the ref names a method.
func (r Ref) IsMethod() bool {
	return r.Selector != ""
}

// URI returns the document URI of the ref.
func (r Ref) URI() string {
	if r.IsMethod() {
		return MethodURI(r.Class, r.Selector)
	}
	return ClassURI(r.Class)
}

// ClassURI returns the URI of a class definition, e.g. webside:/Point.st.
func ClassURI(class string) string {
	return Scheme + ":/" + class + ".st"
}

// MethodURI returns the URI of a method, e.g. webside:/Point/%2B.st.
// The selector is escaped as one path component.
func MethodURI(class, selector string) string {
	return Scheme + ":/" + class + "/" + url.QueryEscape(selector) + ".st"
}

// ParseURI parses a URI produced by ClassURI or MethodURI.
func ParseURI(uri string) (Ref, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+":/")
	if !ok {
		return Ref{}, fmt.Errorf("not a %s URI: %q", Scheme, uri)
	}
	rest, ok = strings.CutSuffix(rest, ".st")
	if !ok || rest == "" {
		return Ref{}, fmt.Errorf("invalid document URI: %q", uri)
	}

	class, escaped, isMethod := strings.Cut(rest, "/")
	if class == "" {
		return Ref{}, fmt.Errorf("invalid document URI: %q", uri)
	}
	if !isMethod {
		return Ref{Class: class}, nil
	}
	selector, err := url.QueryUnescape(escaped)
	if err != nil || selector == "" {
		return Ref{}, fmt.Errorf("invalid method URI %q", uri)
	}
	return Ref{Class: class, Selector: selector}, nil
}
