// Package imagesim provides an in-memory Webside backend.
//
// It serves the same REST surface as a live Smalltalk image over a small
// mutable model, so clients can be exercised without one. It is used by the
// tests of the client packages and by the websidesim daemon.
package imagesim

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
	ErrInvalid  = errors.New("invalid request")
)

// Method is a method held by the image.
type Method struct {
	Class     string `json:"class"`
	Selector  string `json:"selector"`
	Source    string `json:"source"`
	Category  string `json:"category,omitempty"`
	Package   string `json:"package,omitempty"`
	Author    string `json:"author,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Class is a class held by the image.
type Class struct {
	Name       string   `json:"name"`
	Superclass string   `json:"superclass,omitempty"`
	Package    string   `json:"package,omitempty"`
	Definition string   `json:"definition,omitempty"`
	Comment    string   `json:"comment,omitempty"`
	Subclasses []*Class `json:"subclasses,omitempty"`

	ivars      []string
	cvars      []string
	categories []string
	methods    map[string]*Method
}

// Change is the server-side form of a change-log entry.
type Change struct {
	Type        string `json:"type"`
	Author      string `json:"author"`
	ID          string `json:"id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Label       string `json:"label,omitempty"`
	Package     string `json:"package,omitempty"`
	ClassName   string `json:"className,omitempty"`
	Definition  string `json:"definition,omitempty"`
	Comment     string `json:"comment,omitempty"`
	Variable    string `json:"variable,omitempty"`
	Category    string `json:"category,omitempty"`
	Selector    string `json:"selector,omitempty"`
	SourceCode  string `json:"sourceCode,omitempty"`
	NewName     string `json:"newName,omitempty"`
	NewSelector string `json:"newSelector,omitempty"`
}

// Image is the in-memory code model. All methods are safe for concurrent use.
type Image struct {
	mu       sync.Mutex
	packages map[string][]string // package -> class names
	classes  map[string]*Class
	changes  []Change
}

// NewImage creates an empty image.
func NewImage() *Image {
	return &Image{
		packages: make(map[string][]string),
		classes:  make(map[string]*Class),
	}
}

// AddPackage creates an empty package.
func (im *Image) AddPackage(name string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.addPackage(name)
}

func (im *Image) addPackage(name string) error {
	if name == "" {
		return ErrInvalid
	}
	if _, ok := im.packages[name]; ok {
		return ErrExists
	}
	im.packages[name] = []string{}
	return nil
}

// AddClass defines a class. pkg may be empty for a class outside any package.
func (im *Image) AddClass(pkg, name, superclass string) *Class {
	im.mu.Lock()
	defer im.mu.Unlock()
	def := defaultDefinition(name, superclass, pkg)
	cls, _ := im.defineClass(pkg, name, superclass, def)
	return cls
}

// AddMethod compiles a method into an existing class.
func (im *Image) AddMethod(class, selector, source, category string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	_, err := im.compile(class, selector, source, category, "")
	return err
}

// Changes returns a copy of the change log.
func (im *Image) Changes() []Change {
	im.mu.Lock()
	defer im.mu.Unlock()
	return append([]Change(nil), im.changes...)
}

// Method returns a copy of a method, if present.
func (im *Image) Method(class, selector string) (Method, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	cls, ok := im.classes[class]
	if !ok {
		return Method{}, false
	}
	m, ok := cls.methods[selector]
	if !ok {
		return Method{}, false
	}
	return *m, true
}

// HasClass reports whether a class exists.
func (im *Image) HasClass(name string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	_, ok := im.classes[name]
	return ok
}

// HasPackage reports whether a package exists.
func (im *Image) HasPackage(name string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	_, ok := im.packages[name]
	return ok
}

var (
	subclassRe = regexp.MustCompile(`^\s*(\S+)\s+subclass:\s*#(\w+)`)
	packageRe  = regexp.MustCompile(`(?:package|category):\s*'([^']*)'`)
)

func defaultDefinition(name, superclass, pkg string) string {
	if superclass == "" {
		superclass = "nil"
	}
	return superclass + " subclass: #" + name + "\n" +
		"\tinstanceVariableNames: ''\n" +
		"\tclassVariableNames: ''\n" +
		"\tpackage: '" + pkg + "'"
}

// defineClass creates or redefines a class. Caller holds im.mu.
func (im *Image) defineClass(pkg, name, superclass, definition string) (*Class, error) {
	if m := subclassRe.FindStringSubmatch(definition); m != nil {
		if name == "" {
			name = m[2]
		}
		if superclass == "" && m[1] != "nil" {
			superclass = m[1]
		}
	}
	if pkg == "" {
		if m := packageRe.FindStringSubmatch(definition); m != nil {
			pkg = m[1]
		}
	}
	if name == "" {
		return nil, ErrInvalid
	}

	cls, ok := im.classes[name]
	if !ok {
		cls = &Class{Name: name, methods: make(map[string]*Method)}
		im.classes[name] = cls
	}
	if cls.Package != pkg {
		im.unlinkClass(cls)
		cls.Package = pkg
		if pkg != "" {
			if _, ok := im.packages[pkg]; !ok {
				im.packages[pkg] = []string{}
			}
			im.packages[pkg] = append(im.packages[pkg], name)
		}
	}
	cls.Superclass = superclass
	cls.Definition = definition
	return cls, nil
}

func (im *Image) unlinkClass(cls *Class) {
	if cls.Package == "" {
		return
	}
	names := im.packages[cls.Package]
	for i, n := range names {
		if n == cls.Name {
			im.packages[cls.Package] = append(names[:i], names[i+1:]...)
			break
		}
	}
}

// compile adds or replaces a method. Caller holds im.mu.
func (im *Image) compile(class, selector, source, category, author string) (*Method, error) {
	cls, ok := im.classes[class]
	if !ok {
		return nil, ErrNotFound
	}
	if selector == "" {
		selector = parseSelector(source)
	}
	if selector == "" {
		return nil, ErrInvalid
	}
	if category == "" {
		if old, ok := cls.methods[selector]; ok {
			category = old.Category
		}
	}
	m := &Method{
		Class:     class,
		Selector:  selector,
		Source:    source,
		Category:  category,
		Package:   cls.Package,
		Author:    author,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	cls.methods[selector] = m
	if category != "" && !contains(cls.categories, category) {
		cls.categories = append(cls.categories, category)
	}
	return m, nil
}

// parseSelector derives a selector from the first line of method source.
func parseSelector(source string) string {
	line := strings.TrimSpace(strings.SplitN(source, "\n", 2)[0])
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if strings.HasSuffix(first, ":") {
		var sel strings.Builder
		for i := 0; i < len(fields); i += 2 {
			if !strings.HasSuffix(fields[i], ":") {
				break
			}
			sel.WriteString(fields[i])
		}
		return sel.String()
	}
	return first
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) ([]string, bool) {
	for i, e := range list {
		if e == s {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

func rename(list []string, old, new string) bool {
	for i, e := range list {
		if e == old {
			list[i] = new
			return true
		}
	}
	return false
}

// apply executes a change against the model. Caller holds im.mu.
func (im *Image) apply(ch Change) error {
	switch ch.Type {
	case "AddPackage":
		return im.addPackage(ch.Package)
	case "RemovePackage":
		return im.removePackage(ch.Package)
	case "RenamePackage":
		return im.renamePackage(ch.Package, ch.NewName)
	case "AddClass":
		_, err := im.defineClass(ch.Package, ch.ClassName, "", ch.Definition)
		return err
	case "RemoveClass":
		return im.removeClass(ch.ClassName)
	case "RenameClass":
		return im.renameClass(ch.ClassName, ch.NewName)
	case "CommentClass":
		cls, ok := im.classes[ch.ClassName]
		if !ok {
			return ErrNotFound
		}
		cls.Comment = ch.Comment
		return nil
	case "AddInstanceVariable", "RemoveInstanceVariable", "RenameInstanceVariable",
		"AddClassVariable", "RemoveClassVariable", "RenameClassVariable",
		"AddCategory", "RemoveCategory", "RenameCategory":
		return im.applyClassList(ch)
	case "AddMethod":
		_, err := im.compile(ch.ClassName, ch.Selector, ch.SourceCode, ch.Category, ch.Author)
		return err
	case "RemoveMethod":
		cls, ok := im.classes[ch.ClassName]
		if !ok {
			return ErrNotFound
		}
		if _, ok := cls.methods[ch.Selector]; !ok {
			return ErrNotFound
		}
		delete(cls.methods, ch.Selector)
		return nil
	case "ClassifyMethod":
		m, err := im.method(ch.ClassName, ch.Selector)
		if err != nil {
			return err
		}
		m.Category = ch.Category
		cls := im.classes[ch.ClassName]
		if !contains(cls.categories, ch.Category) {
			cls.categories = append(cls.categories, ch.Category)
		}
		return nil
	case "RenameMethod":
		m, err := im.method(ch.ClassName, ch.Selector)
		if err != nil {
			return err
		}
		cls := im.classes[ch.ClassName]
		delete(cls.methods, ch.Selector)
		m.Selector = ch.NewSelector
		cls.methods[ch.NewSelector] = m
		return nil
	default:
		return ErrInvalid
	}
}

func (im *Image) method(class, selector string) (*Method, error) {
	cls, ok := im.classes[class]
	if !ok {
		return nil, ErrNotFound
	}
	m, ok := cls.methods[selector]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (im *Image) applyClassList(ch Change) error {
	cls, ok := im.classes[ch.ClassName]
	if !ok {
		return ErrNotFound
	}
	var list *[]string
	var name string
	switch {
	case strings.HasSuffix(ch.Type, "InstanceVariable"):
		list, name = &cls.ivars, ch.Variable
	case strings.HasSuffix(ch.Type, "ClassVariable"):
		list, name = &cls.cvars, ch.Variable
	default:
		list, name = &cls.categories, ch.Category
	}
	switch {
	case strings.HasPrefix(ch.Type, "Add"):
		if contains(*list, name) {
			return ErrExists
		}
		*list = append(*list, name)
	case strings.HasPrefix(ch.Type, "Remove"):
		var removed bool
		if *list, removed = remove(*list, name); !removed {
			return ErrNotFound
		}
	default:
		if !rename(*list, name, ch.NewName) {
			return ErrNotFound
		}
	}
	return nil
}

func (im *Image) removePackage(name string) error {
	classes, ok := im.packages[name]
	if !ok {
		return ErrNotFound
	}
	for _, c := range classes {
		delete(im.classes, c)
	}
	delete(im.packages, name)
	return nil
}

func (im *Image) renamePackage(name, newName string) error {
	classes, ok := im.packages[name]
	if !ok {
		return ErrNotFound
	}
	if _, ok := im.packages[newName]; ok {
		return ErrExists
	}
	delete(im.packages, name)
	im.packages[newName] = classes
	for _, c := range classes {
		cls := im.classes[c]
		cls.Package = newName
		for _, m := range cls.methods {
			m.Package = newName
		}
	}
	return nil
}

func (im *Image) removeClass(name string) error {
	cls, ok := im.classes[name]
	if !ok {
		return ErrNotFound
	}
	im.unlinkClass(cls)
	delete(im.classes, name)
	return nil
}

func (im *Image) renameClass(name, newName string) error {
	cls, ok := im.classes[name]
	if !ok {
		return ErrNotFound
	}
	if _, ok := im.classes[newName]; ok {
		return ErrExists
	}
	delete(im.classes, name)
	cls.Name = newName
	im.classes[newName] = cls
	if cls.Package != "" {
		rename(im.packages[cls.Package], name, newName)
	}
	for _, m := range cls.methods {
		m.Class = newName
	}
	for _, other := range im.classes {
		if other.Superclass == name {
			other.Superclass = newName
		}
	}
	return nil
}

// Apply executes a change without recording it in the change log.
func (im *Image) Apply(ch Change) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.apply(ch)
}

// record applies a change and appends it to the log.
func (im *Image) record(ch Change) (Change, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.apply(ch); err != nil {
		return Change{}, err
	}
	ch.ID = uuid.NewString()
	ch.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if ch.Label == "" {
		ch.Label = changeLabel(ch)
	}
	im.changes = append(im.changes, ch)
	return ch, nil
}

func changeLabel(ch Change) string {
	switch {
	case ch.Selector != "":
		return ch.ClassName + ">>" + ch.Selector
	case ch.ClassName != "":
		return ch.ClassName
	default:
		return ch.Package
	}
}

// --- Queries (caller holds im.mu) ---

func (im *Image) packageNames() []string {
	names := make([]string, 0, len(im.packages))
	for n := range im.packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (im *Image) classNames() []string {
	names := make([]string, 0, len(im.classes))
	for n := range im.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (im *Image) classSnapshot(cls *Class) *Class {
	return &Class{
		Name:       cls.Name,
		Superclass: cls.Superclass,
		Package:    cls.Package,
		Definition: cls.Definition,
		Comment:    cls.Comment,
	}
}

// subtree copies cls with subclasses nested up to depth levels (0 = unbounded).
func (im *Image) subtree(cls *Class, depth int) *Class {
	out := im.classSnapshot(cls)
	if depth == 1 {
		return out
	}
	next := depth - 1
	if depth == 0 {
		next = 0
	}
	for _, name := range im.classNames() {
		sub := im.classes[name]
		if sub.Superclass == cls.Name {
			out.Subclasses = append(out.Subclasses, im.subtree(sub, next))
		}
	}
	return out
}

func (im *Image) allMethods() []*Method {
	var out []*Method
	for _, name := range im.classNames() {
		cls := im.classes[name]
		sels := make([]string, 0, len(cls.methods))
		for s := range cls.methods {
			sels = append(sels, s)
		}
		sort.Strings(sels)
		for _, s := range sels {
			out = append(out, cls.methods[s])
		}
	}
	return out
}
