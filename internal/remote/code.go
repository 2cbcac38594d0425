package remote

import (
	"context"
	"net/url"
	"strconv"
)

// Read-only code queries. These never consult change-log negotiation.

// ClassQuery selects how classes of a package are returned.
type ClassQuery struct {
	Names bool // names only
	Tree  bool // nested by superclass
	Depth int  // tree depth, 0 for unbounded
}

// MethodQuery asks for optional method details.
type MethodQuery struct {
	Bytecodes   bool
	Disassembly bool
	AST         bool
	Annotations bool
	Category    string
}

func (q MethodQuery) encode() string {
	v := url.Values{}
	if q.Bytecodes {
		v.Set("bytecodes", "true")
	}
	if q.Disassembly {
		v.Set("disassembly", "true")
	}
	if q.AST {
		v.Set("ast", "true")
	}
	if q.Annotations {
		v.Set("annotations", "true")
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return query(v)
}

// SearchQuery parameterizes GET /search.
type SearchQuery struct {
	Text       string
	IgnoreCase bool
	Condition  string // "beginning", "including", "ending", "similar"
	Type       string // "all", "package", "class", "selector", "pool"
}

func seg(s string) string {
	return url.PathEscape(s)
}

func query(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Dialect returns the Smalltalk dialect served by the backend.
func (c *Client) Dialect(ctx context.Context) (string, error) {
	var dialect string
	if err := c.getJSON(ctx, "/dialect", &dialect); err != nil {
		return "", err
	}
	return dialect, nil
}

// Packages lists all packages.
func (c *Client) Packages(ctx context.Context) ([]Package, error) {
	var pkgs []Package
	if err := c.getJSON(ctx, "/packages", &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// PackageNames lists package names only.
func (c *Client) PackageNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.getJSON(ctx, "/packages?names=true", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// PackageTree lists packages with their class names.
func (c *Client) PackageTree(ctx context.Context) ([]Package, error) {
	var pkgs []Package
	if err := c.getJSON(ctx, "/packages?tree=true", &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// Package returns a single package.
func (c *Client) Package(ctx context.Context, name string) (*Package, error) {
	var pkg Package
	if err := c.getJSON(ctx, "/packages/"+seg(name), &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// PackageClasses lists the classes defined in a package.
func (c *Client) PackageClasses(ctx context.Context, pkg string, q ClassQuery) ([]Class, error) {
	v := url.Values{}
	if q.Names {
		v.Set("names", "true")
	}
	if q.Tree {
		v.Set("tree", "true")
		if q.Depth > 0 {
			v.Set("depth", strconv.Itoa(q.Depth))
		}
	}
	var classes []Class
	if err := c.getJSON(ctx, "/packages/"+seg(pkg)+"/classes"+query(v), &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// ClassNames lists every class name in the image.
func (c *Client) ClassNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.getJSON(ctx, "/classes?names=true", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Class returns a class definition.
func (c *Client) Class(ctx context.Context, name string) (*Class, error) {
	var cls Class
	if err := c.getJSON(ctx, "/classes/"+seg(name), &cls); err != nil {
		return nil, err
	}
	return &cls, nil
}

// ClassTree returns root with its subclasses nested up to depth levels.
func (c *Client) ClassTree(ctx context.Context, root string, depth int) (*Class, error) {
	v := url.Values{}
	v.Set("root", root)
	v.Set("tree", "true")
	if depth > 0 {
		v.Set("depth", strconv.Itoa(depth))
	}
	var tree []*Class
	if err := c.getJSON(ctx, "/classes"+query(v), &tree); err != nil {
		return nil, err
	}
	if len(tree) == 0 {
		return nil, nil
	}
	return tree[0], nil
}

// Subclasses lists the direct subclasses of a class.
func (c *Client) Subclasses(ctx context.Context, name string) ([]Class, error) {
	var classes []Class
	if err := c.getJSON(ctx, "/classes/"+seg(name)+"/subclasses", &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// Superclasses lists the superclass chain of a class.
func (c *Client) Superclasses(ctx context.Context, name string) ([]Class, error) {
	var classes []Class
	if err := c.getJSON(ctx, "/classes/"+seg(name)+"/superclasses", &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// InstanceVariables lists the instance variables of a class.
func (c *Client) InstanceVariables(ctx context.Context, class string) ([]Variable, error) {
	var vars []Variable
	if err := c.getJSON(ctx, "/classes/"+seg(class)+"/instance-variables", &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// ClassVariables lists the class variables of a class.
func (c *Client) ClassVariables(ctx context.Context, class string) ([]Variable, error) {
	var vars []Variable
	if err := c.getJSON(ctx, "/classes/"+seg(class)+"/class-variables", &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// Categories lists the method categories of a class.
func (c *Client) Categories(ctx context.Context, class string) ([]string, error) {
	var cats []string
	if err := c.getJSON(ctx, "/classes/"+seg(class)+"/categories", &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// Methods lists the methods of a class.
func (c *Client) Methods(ctx context.Context, class string, q MethodQuery) ([]Method, error) {
	var methods []Method
	if err := c.getJSON(ctx, "/classes/"+seg(class)+"/methods"+q.encode(), &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// Method returns a single method.
func (c *Client) Method(ctx context.Context, class, selector string, q MethodQuery) (*Method, error) {
	var m Method
	if err := c.getJSON(ctx, "/classes/"+seg(class)+"/methods/"+seg(selector)+q.encode(), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Search runs a name search over packages, classes and selectors.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	v := url.Values{}
	v.Set("text", q.Text)
	v.Set("ignoreCase", strconv.FormatBool(q.IgnoreCase))
	if q.Condition != "" {
		v.Set("condition", q.Condition)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	var results []SearchResult
	if err := c.getJSON(ctx, "/search"+query(v), &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) methodsWhere(ctx context.Context, key, value string) ([]Method, error) {
	v := url.Values{}
	v.Set(key, value)
	var methods []Method
	if err := c.getJSON(ctx, "/methods"+query(v), &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// Senders lists methods sending selector.
func (c *Client) Senders(ctx context.Context, selector string) ([]Method, error) {
	return c.methodsWhere(ctx, "sending", selector)
}

// Implementors lists every method named selector, across all classes.
func (c *Client) Implementors(ctx context.Context, selector string) ([]Method, error) {
	return c.methodsWhere(ctx, "selector", selector)
}

// ClassReferences lists methods referencing class.
func (c *Client) ClassReferences(ctx context.Context, class string) ([]Method, error) {
	return c.methodsWhere(ctx, "referencingClass", class)
}

// StringReferences lists methods containing the string literal s.
func (c *Client) StringReferences(ctx context.Context, s string) ([]Method, error) {
	return c.methodsWhere(ctx, "referencingString", s)
}

// autocompletionRequest is the body of POST /autocompletions.
type autocompletionRequest struct {
	Class    string `json:"class,omitempty"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// Autocompletions returns completion candidates for source at position.
func (c *Client) Autocompletions(ctx context.Context, class, source string, position int) ([]string, error) {
	var entries []string
	req := autocompletionRequest{Class: class, Source: source, Position: position}
	if err := c.postJSON(ctx, "/autocompletions", req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
