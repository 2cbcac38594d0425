package imagesim

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /dialect", s.Dialect)

	// Packages
	mux.HandleFunc("GET /packages", s.ListPackages)
	mux.HandleFunc("POST /packages", s.CreatePackage)
	mux.HandleFunc("GET /packages/{name}", s.GetPackage)
	mux.HandleFunc("PUT /packages/{name}", s.RenamePackage)
	mux.HandleFunc("DELETE /packages/{name}", s.DeletePackage)
	mux.HandleFunc("GET /packages/{name}/classes", s.PackageClasses)

	// Classes
	mux.HandleFunc("GET /classes", s.ListClasses)
	mux.HandleFunc("POST /classes", s.CreateClass)
	mux.HandleFunc("GET /classes/{name}", s.GetClass)
	mux.HandleFunc("PUT /classes/{name}", s.RenameClass)
	mux.HandleFunc("DELETE /classes/{name}", s.DeleteClass)
	mux.HandleFunc("PUT /classes/{name}/comment", s.CommentClass)
	mux.HandleFunc("GET /classes/{name}/subclasses", s.Subclasses)
	mux.HandleFunc("GET /classes/{name}/superclasses", s.Superclasses)

	for _, kind := range []string{"instance-variables", "class-variables", "categories"} {
		kind := kind
		mux.HandleFunc("GET /classes/{name}/"+kind, func(w http.ResponseWriter, r *http.Request) { s.listClassItems(w, r, kind) })
		mux.HandleFunc("POST /classes/{name}/"+kind, func(w http.ResponseWriter, r *http.Request) { s.addClassItem(w, r, kind) })
		mux.HandleFunc("PUT /classes/{name}/"+kind+"/{item}", func(w http.ResponseWriter, r *http.Request) { s.renameClassItem(w, r, kind) })
		mux.HandleFunc("DELETE /classes/{name}/"+kind+"/{item}", func(w http.ResponseWriter, r *http.Request) { s.removeClassItem(w, r, kind) })
	}

	// Methods
	mux.HandleFunc("GET /classes/{name}/methods", s.ListMethods)
	mux.HandleFunc("POST /classes/{name}/methods", s.CompileMethod)
	mux.HandleFunc("GET /classes/{name}/methods/{selector}", s.GetMethod)
	mux.HandleFunc("PUT /classes/{name}/methods/{selector}", s.UpdateMethod)
	mux.HandleFunc("DELETE /classes/{name}/methods/{selector}", s.DeleteMethod)
	mux.HandleFunc("GET /methods", s.QueryMethods)
	mux.HandleFunc("GET /search", s.Search)
	mux.HandleFunc("POST /autocompletions", s.Autocompletions)

	// Change log
	mux.HandleFunc("GET /changes", s.ListChanges)
	mux.HandleFunc("POST /changes", s.PostChange)

	s.runtimeRoutes(mux)
}

// Dialect handles GET /dialect.
func (s *Server) Dialect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dialect)
}

// --- Packages ---

type packageView struct {
	Name    string   `json:"name"`
	Classes []string `json:"classes,omitempty"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// ListPackages handles GET /packages.
func (s *Server) ListPackages(w http.ResponseWriter, r *http.Request) {
	s.img.mu.Lock()
	defer s.img.mu.Unlock()

	names := s.img.packageNames()
	if r.URL.Query().Get("names") == "true" {
		writeJSON(w, http.StatusOK, names)
		return
	}
	views := make([]packageView, 0, len(names))
	for _, n := range names {
		views = append(views, s.packageView(n))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) packageView(name string) packageView {
	classes := append([]string(nil), s.img.packages[name]...)
	sort.Strings(classes)
	return packageView{Name: name, Classes: classes}
}

// CreatePackage handles POST /packages.
func (s *Server) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	if err := s.img.Apply(Change{Type: "AddPackage", Package: req.Name}); err != nil {
		writeImageError(w, "package", err)
		return
	}
	writeJSON(w, http.StatusCreated, packageView{Name: req.Name})
}

// GetPackage handles GET /packages/{name}.
func (s *Server) GetPackage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	if _, ok := s.img.packages[name]; !ok {
		writeError(w, http.StatusNotFound, "package not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.packageView(name))
}

// RenamePackage handles PUT /packages/{name}.
func (s *Server) RenamePackage(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	ch := Change{Type: "RenamePackage", Package: r.PathValue("name"), NewName: req.Name}
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, "package", err)
		return
	}
	writeJSON(w, http.StatusOK, packageView{Name: req.Name})
}

// DeletePackage handles DELETE /packages/{name}.
func (s *Server) DeletePackage(w http.ResponseWriter, r *http.Request) {
	if err := s.img.Apply(Change{Type: "RemovePackage", Package: r.PathValue("name")}); err != nil {
		writeImageError(w, "package", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PackageClasses handles GET /packages/{name}/classes.
func (s *Server) PackageClasses(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	q := r.URL.Query()

	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	members, ok := s.img.packages[name]
	if !ok {
		writeError(w, http.StatusNotFound, "package not found", nil)
		return
	}
	names := append([]string(nil), members...)
	sort.Strings(names)

	if q.Get("names") == "true" {
		writeJSON(w, http.StatusOK, names)
		return
	}
	if q.Get("tree") == "true" {
		depth, _ := strconv.Atoi(q.Get("depth"))
		var roots []*Class
		for _, n := range names {
			cls := s.img.classes[n]
			if parent, ok := s.img.classes[cls.Superclass]; ok && parent.Package == name {
				continue
			}
			roots = append(roots, s.img.subtree(cls, depth))
		}
		writeJSON(w, http.StatusOK, roots)
		return
	}
	classes := make([]*Class, 0, len(names))
	for _, n := range names {
		classes = append(classes, s.img.classSnapshot(s.img.classes[n]))
	}
	writeJSON(w, http.StatusOK, classes)
}

// --- Classes ---

type classRequest struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Package    string `json:"package"`
}

// ListClasses handles GET /classes.
func (s *Server) ListClasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.img.mu.Lock()
	defer s.img.mu.Unlock()

	if q.Get("names") == "true" {
		writeJSON(w, http.StatusOK, s.img.classNames())
		return
	}
	if root := q.Get("root"); root != "" {
		cls, ok := s.img.classes[root]
		if !ok {
			writeError(w, http.StatusNotFound, "class not found", nil)
			return
		}
		depth, _ := strconv.Atoi(q.Get("depth"))
		writeJSON(w, http.StatusOK, []*Class{s.img.subtree(cls, depth)})
		return
	}
	var classes []*Class
	for _, n := range s.img.classNames() {
		classes = append(classes, s.img.classSnapshot(s.img.classes[n]))
	}
	writeJSON(w, http.StatusOK, classes)
}

// CreateClass handles POST /classes.
func (s *Server) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	ch := Change{Type: "AddClass", Package: req.Package, ClassName: req.Name, Definition: req.Definition}
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, "class", err)
		return
	}
	s.writeClass(w, http.StatusCreated, req.Name)
}

func (s *Server) writeClass(w http.ResponseWriter, status int, name string) {
	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	cls, ok := s.img.classes[name]
	if !ok {
		writeError(w, http.StatusNotFound, "class not found", nil)
		return
	}
	writeJSON(w, status, s.img.classSnapshot(cls))
}

// GetClass handles GET /classes/{name}.
func (s *Server) GetClass(w http.ResponseWriter, r *http.Request) {
	s.writeClass(w, http.StatusOK, r.PathValue("name"))
}

// RenameClass handles PUT /classes/{name}.
func (s *Server) RenameClass(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	ch := Change{Type: "RenameClass", ClassName: r.PathValue("name"), NewName: req.Name}
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, "class", err)
		return
	}
	s.writeClass(w, http.StatusOK, req.Name)
}

// DeleteClass handles DELETE /classes/{name}.
func (s *Server) DeleteClass(w http.ResponseWriter, r *http.Request) {
	if err := s.img.Apply(Change{Type: "RemoveClass", ClassName: r.PathValue("name")}); err != nil {
		writeImageError(w, "class", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommentClass handles PUT /classes/{name}/comment.
func (s *Server) CommentClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	name := r.PathValue("name")
	if err := s.img.Apply(Change{Type: "CommentClass", ClassName: name, Comment: req.Comment}); err != nil {
		writeImageError(w, "class", err)
		return
	}
	s.writeClass(w, http.StatusOK, name)
}

// Subclasses handles GET /classes/{name}/subclasses.
func (s *Server) Subclasses(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	if _, ok := s.img.classes[name]; !ok {
		writeError(w, http.StatusNotFound, "class not found", nil)
		return
	}
	subs := []*Class{}
	for _, n := range s.img.classNames() {
		if cls := s.img.classes[n]; cls.Superclass == name {
			subs = append(subs, s.img.classSnapshot(cls))
		}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Superclasses handles GET /classes/{name}/superclasses.
func (s *Server) Superclasses(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	cls, ok := s.img.classes[name]
	if !ok {
		writeError(w, http.StatusNotFound, "class not found", nil)
		return
	}
	chain := []*Class{}
	seen := map[string]bool{name: true}
	for sup, ok := s.img.classes[cls.Superclass]; ok && !seen[sup.Name]; sup, ok = s.img.classes[sup.Superclass] {
		seen[sup.Name] = true
		chain = append(chain, s.img.classSnapshot(sup))
	}
	writeJSON(w, http.StatusOK, chain)
}

type variableView struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Type  string `json:"type"`
}

var itemChange = map[string]string{
	"instance-variables": "InstanceVariable",
	"class-variables":    "ClassVariable",
	"categories":         "Category",
}

func (s *Server) listClassItems(w http.ResponseWriter, r *http.Request, kind string) {
	name := r.PathValue("name")
	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	cls, ok := s.img.classes[name]
	if !ok {
		writeError(w, http.StatusNotFound, "class not found", nil)
		return
	}
	switch kind {
	case "categories":
		cats := append([]string{}, cls.categories...)
		sort.Strings(cats)
		writeJSON(w, http.StatusOK, cats)
	case "instance-variables":
		writeJSON(w, http.StatusOK, variables(cls.Name, "instance", cls.ivars))
	default:
		writeJSON(w, http.StatusOK, variables(cls.Name, "class", cls.cvars))
	}
}

func variables(class, kind string, names []string) []variableView {
	vars := make([]variableView, 0, len(names))
	for _, n := range names {
		vars = append(vars, variableView{Name: n, Class: class, Type: kind})
	}
	return vars
}

func itemField(ch *Change, kind, value string) {
	if kind == "categories" {
		ch.Category = value
	} else {
		ch.Variable = value
	}
}

func (s *Server) addClassItem(w http.ResponseWriter, r *http.Request, kind string) {
	var req nameRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	ch := Change{Type: "Add" + itemChange[kind], ClassName: r.PathValue("name")}
	itemField(&ch, kind, req.Name)
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, kind, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) renameClassItem(w http.ResponseWriter, r *http.Request, kind string) {
	var req nameRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	ch := Change{Type: "Rename" + itemChange[kind], ClassName: r.PathValue("name"), NewName: req.Name}
	itemField(&ch, kind, r.PathValue("item"))
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, kind, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) removeClassItem(w http.ResponseWriter, r *http.Request, kind string) {
	ch := Change{Type: "Remove" + itemChange[kind], ClassName: r.PathValue("name")}
	itemField(&ch, kind, r.PathValue("item"))
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, kind, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Methods ---

type methodRequest struct {
	Selector string `json:"selector"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// ListMethods handles GET /classes/{name}/methods.
func (s *Server) ListMethods(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	category := r.URL.Query().Get("category")

	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	cls, ok := s.img.classes[name]
	if !ok {
		writeError(w, http.StatusNotFound, "class not found", nil)
		return
	}
	sels := make([]string, 0, len(cls.methods))
	for sel := range cls.methods {
		sels = append(sels, sel)
	}
	sort.Strings(sels)
	methods := []Method{}
	for _, sel := range sels {
		m := cls.methods[sel]
		if category != "" && m.Category != category {
			continue
		}
		methods = append(methods, *m)
	}
	writeJSON(w, http.StatusOK, methods)
}

// GetMethod handles GET /classes/{name}/methods/{selector}.
func (s *Server) GetMethod(w http.ResponseWriter, r *http.Request) {
	m, ok := s.img.Method(r.PathValue("name"), r.PathValue("selector"))
	if !ok {
		writeError(w, http.StatusNotFound, "method not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CompileMethod handles POST /classes/{name}/methods.
func (s *Server) CompileMethod(w http.ResponseWriter, r *http.Request) {
	var req methodRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	s.img.mu.Lock()
	m, err := s.img.compile(r.PathValue("name"), req.Selector, req.Source, req.Category, r.Header.Get("X-Webside-Author"))
	var out Method
	if err == nil {
		out = *m
	}
	s.img.mu.Unlock()
	if err != nil {
		writeImageError(w, "class", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateMethod handles PUT /classes/{name}/methods/{selector}: a new selector
// renames the method, a category reclassifies it.
func (s *Server) UpdateMethod(w http.ResponseWriter, r *http.Request) {
	var req methodRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	class, selector := r.PathValue("name"), r.PathValue("selector")
	if req.Category != "" {
		if err := s.img.Apply(Change{Type: "ClassifyMethod", ClassName: class, Selector: selector, Category: req.Category}); err != nil {
			writeImageError(w, "method", err)
			return
		}
	}
	if req.Selector != "" && req.Selector != selector {
		if err := s.img.Apply(Change{Type: "RenameMethod", ClassName: class, Selector: selector, NewSelector: req.Selector}); err != nil {
			writeImageError(w, "method", err)
			return
		}
		selector = req.Selector
	}
	m, ok := s.img.Method(class, selector)
	if !ok {
		writeError(w, http.StatusNotFound, "method not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMethod handles DELETE /classes/{name}/methods/{selector}.
func (s *Server) DeleteMethod(w http.ResponseWriter, r *http.Request) {
	ch := Change{Type: "RemoveMethod", ClassName: r.PathValue("name"), Selector: r.PathValue("selector")}
	if err := s.img.Apply(ch); err != nil {
		writeImageError(w, "method", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryMethods handles GET /methods with one of the selector, sending,
// referencingClass or referencingString filters.
func (s *Server) QueryMethods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var match func(m *Method) bool
	switch {
	case q.Has("selector"):
		sel := q.Get("selector")
		match = func(m *Method) bool { return m.Selector == sel }
	case q.Has("sending"):
		parts := keywords(q.Get("sending"))
		match = func(m *Method) bool {
			body := methodBody(m.Source)
			for _, p := range parts {
				if !strings.Contains(body, p) {
					return false
				}
			}
			return true
		}
	case q.Has("referencingClass"):
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(q.Get("referencingClass")) + `\b`)
		match = func(m *Method) bool { return re.MatchString(methodBody(m.Source)) }
	case q.Has("referencingString"):
		lit := "'" + q.Get("referencingString") + "'"
		match = func(m *Method) bool { return strings.Contains(m.Source, lit) }
	default:
		writeError(w, http.StatusBadRequest, "missing method filter", nil)
		return
	}

	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	methods := []Method{}
	for _, m := range s.img.allMethods() {
		if match(m) {
			methods = append(methods, *m)
		}
	}
	writeJSON(w, http.StatusOK, methods)
}

func keywords(selector string) []string {
	if !strings.HasSuffix(selector, ":") {
		return []string{selector}
	}
	var parts []string
	for _, p := range strings.SplitAfter(selector, ":") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// methodBody drops the method header line.
func methodBody(source string) string {
	if i := strings.IndexByte(source, '\n'); i >= 0 {
		return source[i+1:]
	}
	return ""
}

type searchResult struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	ignoreCase := q.Get("ignoreCase") == "true"
	condition := q.Get("condition")
	kind := q.Get("type")
	if kind == "" {
		kind = "all"
	}

	matches := func(candidate string) bool {
		c, t := candidate, text
		if ignoreCase {
			c, t = strings.ToLower(c), strings.ToLower(t)
		}
		switch condition {
		case "including":
			return strings.Contains(c, t)
		case "ending":
			return strings.HasSuffix(c, t)
		case "similar":
			return strings.Contains(strings.ToLower(c), strings.ToLower(t))
		default:
			return strings.HasPrefix(c, t)
		}
	}

	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	results := []searchResult{}
	if kind == "all" || kind == "package" {
		for _, n := range s.img.packageNames() {
			if matches(n) {
				results = append(results, searchResult{Type: "package", Text: n})
			}
		}
	}
	if kind == "all" || kind == "class" {
		for _, n := range s.img.classNames() {
			if matches(n) {
				results = append(results, searchResult{Type: "class", Text: n})
			}
		}
	}
	if kind == "all" || kind == "selector" {
		seen := map[string]bool{}
		var sels []string
		for _, m := range s.img.allMethods() {
			if !seen[m.Selector] && matches(m.Selector) {
				seen[m.Selector] = true
				sels = append(sels, m.Selector)
			}
		}
		sort.Strings(sels)
		for _, sel := range sels {
			results = append(results, searchResult{Type: "selector", Text: sel})
		}
	}
	writeJSON(w, http.StatusOK, results)
}

// Autocompletions handles POST /autocompletions.
func (s *Server) Autocompletions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Class    string `json:"class"`
		Source   string `json:"source"`
		Position int    `json:"position"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	pos := req.Position
	if pos < 0 || pos > len(req.Source) {
		pos = len(req.Source)
	}
	start := pos
	for start > 0 && isIdentByte(req.Source[start-1]) {
		start--
	}
	prefix := req.Source[start:pos]

	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	seen := map[string]bool{}
	entries := []string{}
	add := func(e string) {
		if prefix != "" && strings.HasPrefix(e, prefix) && !seen[e] {
			seen[e] = true
			entries = append(entries, e)
		}
	}
	if prefix != "" && prefix[0] >= 'A' && prefix[0] <= 'Z' {
		for _, n := range s.img.classNames() {
			add(n)
		}
	} else {
		for _, m := range s.img.allMethods() {
			add(m.Selector)
		}
	}
	sort.Strings(entries)
	writeJSON(w, http.StatusOK, entries)
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// --- Change log ---

// ListChanges handles GET /changes.
func (s *Server) ListChanges(w http.ResponseWriter, r *http.Request) {
	if !s.changesOn() {
		writeError(w, http.StatusNotFound, "changes not available", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.img.Changes())
}

// PostChange handles POST /changes.
func (s *Server) PostChange(w http.ResponseWriter, r *http.Request) {
	if !s.changesOn() {
		writeError(w, http.StatusNotFound, "changes not available", nil)
		return
	}
	var ch Change
	if err := readJSON(r, &ch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid change", err)
		return
	}
	if ch.Author == "" {
		writeError(w, http.StatusBadRequest, "change has no author", nil)
		return
	}
	applied, err := s.img.record(ch)
	if err != nil {
		writeImageError(w, ch.Type, err)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}
