package imagesim

import (
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// runtime holds the ephemeral evaluation state. Guarded by Server.mu.
type runtime struct {
	evaluations map[string]*evaluation
	objects     map[string]*object
	debuggers   map[string]*debugger
	workspaces  map[string]*workspace
}

func newRuntime() runtime {
	return runtime{
		evaluations: make(map[string]*evaluation),
		objects:     make(map[string]*object),
		debuggers:   make(map[string]*debugger),
		workspaces:  make(map[string]*workspace),
	}
}

type evaluation struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	State      string `json:"state"`
	err        error
}

type object struct {
	ID          string `json:"id"`
	Class       string `json:"class"`
	PrintString string `json:"printString"`
}

type frame struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Class string `json:"class"`
}

type debugger struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Frames      []frame `json:"frames"`
}

type workspace struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

func (s *Server) runtimeRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /evaluations", s.Evaluate)
	mux.HandleFunc("GET /evaluations", s.ListEvaluations)
	mux.HandleFunc("GET /evaluations/{id}", s.GetEvaluation)
	mux.HandleFunc("DELETE /evaluations/{id}", s.CancelEvaluation)

	mux.HandleFunc("POST /debuggers", s.CreateDebugger)
	mux.HandleFunc("GET /debuggers", s.ListDebuggers)
	mux.HandleFunc("DELETE /debuggers/{id}", s.DeleteDebugger)
	mux.HandleFunc("GET /debuggers/{id}/frames", s.Frames)
	mux.HandleFunc("GET /debuggers/{id}/frames/{index}", s.Frame)
	mux.HandleFunc("GET /debuggers/{id}/frames/{index}/bindings", s.FrameBindings)
	mux.HandleFunc("POST /debuggers/{id}/frames/{index}/{action}", s.FrameAction)
	mux.HandleFunc("POST /debuggers/{id}/resume", s.DeleteDebugger)
	mux.HandleFunc("POST /debuggers/{id}/terminate", s.DeleteDebugger)

	mux.HandleFunc("POST /workspaces", s.CreateWorkspace)
	mux.HandleFunc("GET /workspaces", s.ListWorkspaces)
	mux.HandleFunc("GET /workspaces/{id}", s.GetWorkspace)
	mux.HandleFunc("DELETE /workspaces/{id}", s.DeleteWorkspace)

	mux.HandleFunc("GET /objects", s.ListObjects)
	mux.HandleFunc("DELETE /objects", s.UnpinAll)
	mux.HandleFunc("GET /objects/{id}", s.GetObject)
	mux.HandleFunc("DELETE /objects/{id}", s.UnpinObject)
	mux.HandleFunc("GET /objects/{id}/{path...}", s.ObjectPath)

	mux.HandleFunc("GET /test-runs", s.emptyList)
	mux.HandleFunc("GET /profilers", s.emptyList)
}

func (s *Server) emptyList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []struct{}{})
}

var arithmeticRe = regexp.MustCompile(`^(-?\d+)\s*([-+*])\s*(-?\d+)$`)

// evaluate understands integer literals and arithmetic, string literals and
// class names. Anything mentioning halt or error: fails.
func (s *Server) evaluate(expr string) (*object, error) {
	expr = strings.TrimSuffix(strings.TrimSpace(expr), ".")
	if strings.Contains(expr, "halt") || strings.Contains(expr, "error:") {
		return nil, errors.New("Halt")
	}
	if m := arithmeticRe.FindStringSubmatch(expr); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		var n int
		switch m[2] {
		case "+":
			n = a + b
		case "-":
			n = a - b
		default:
			n = a * b
		}
		return &object{Class: "SmallInteger", PrintString: strconv.Itoa(n)}, nil
	}
	if _, err := strconv.Atoi(expr); err == nil {
		return &object{Class: "SmallInteger", PrintString: expr}, nil
	}
	if len(expr) >= 2 && strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'") {
		return &object{Class: "String", PrintString: expr}, nil
	}
	if expr == "nil" {
		return &object{Class: "UndefinedObject", PrintString: "nil"}, nil
	}
	if s.img.HasClass(expr) {
		return &object{Class: expr + " class", PrintString: expr}, nil
	}
	return nil, errors.New("Undeclared variable " + expr)
}

// Evaluate handles POST /evaluations. Successful results are pinned under
// the evaluation id.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	eval := &evaluation{ID: uuid.NewString(), Expression: req.Expression, State: "finished"}
	obj, err := s.evaluate(req.Expression)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		eval.State = "failed"
		eval.err = err
	} else {
		obj.ID = eval.ID
		s.runtime.objects[obj.ID] = obj
	}
	s.runtime.evaluations[eval.ID] = eval
	writeJSON(w, http.StatusOK, eval)
}

// ListEvaluations handles GET /evaluations.
func (s *Server) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evals := []*evaluation{}
	for _, e := range s.runtime.evaluations {
		evals = append(evals, e)
	}
	sort.Slice(evals, func(i, j int) bool { return evals[i].ID < evals[j].ID })
	writeJSON(w, http.StatusOK, evals)
}

// GetEvaluation handles GET /evaluations/{id}.
func (s *Server) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runtime.evaluations[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "evaluation not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CancelEvaluation handles DELETE /evaluations/{id}.
func (s *Server) CancelEvaluation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.runtime.evaluations[id]; !ok {
		writeError(w, http.StatusNotFound, "evaluation not found", nil)
		return
	}
	delete(s.runtime.evaluations, id)
	w.WriteHeader(http.StatusNoContent)
}

// CreateDebugger handles POST /debuggers for a failed evaluation.
func (s *Server) CreateDebugger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Evaluation string `json:"evaluation"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runtime.evaluations[req.Evaluation]
	if !ok {
		writeError(w, http.StatusNotFound, "evaluation not found", nil)
		return
	}
	if e.err == nil {
		writeError(w, http.StatusConflict, "evaluation did not fail", nil)
		return
	}
	d := &debugger{
		ID:          uuid.NewString(),
		Description: e.err.Error(),
		Frames: []frame{
			{Index: 0, Label: "UndefinedObject>>doIt", Class: "UndefinedObject"},
		},
	}
	s.runtime.debuggers[d.ID] = d
	writeJSON(w, http.StatusOK, d)
}

// ListDebuggers handles GET /debuggers.
func (s *Server) ListDebuggers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := []*debugger{}
	for _, d := range s.runtime.debuggers {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
	writeJSON(w, http.StatusOK, ds)
}

// DeleteDebugger handles DELETE /debuggers/{id}, resume and terminate.
func (s *Server) DeleteDebugger(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.runtime.debuggers[id]; !ok {
		writeError(w, http.StatusNotFound, "debugger not found", nil)
		return
	}
	delete(s.runtime.debuggers, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupFrame(w http.ResponseWriter, r *http.Request) (*debugger, *frame, bool) {
	d, ok := s.runtime.debuggers[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "debugger not found", nil)
		return nil, nil, false
	}
	if r.PathValue("index") == "" {
		return d, nil, true
	}
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || i < 0 || i >= len(d.Frames) {
		writeError(w, http.StatusNotFound, "frame not found", nil)
		return nil, nil, false
	}
	return d, &d.Frames[i], true
}

// Frames handles GET /debuggers/{id}/frames.
func (s *Server) Frames(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, _, ok := s.lookupFrame(w, r); ok {
		writeJSON(w, http.StatusOK, d.Frames)
	}
}

// Frame handles GET /debuggers/{id}/frames/{index}.
func (s *Server) Frame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, f, ok := s.lookupFrame(w, r); ok {
		writeJSON(w, http.StatusOK, f)
	}
}

// FrameBindings handles GET /debuggers/{id}/frames/{index}/bindings.
func (s *Server) FrameBindings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.lookupFrame(w, r); ok {
		writeJSON(w, http.StatusOK, []struct{}{})
	}
}

// FrameAction handles the stepping actions of a frame.
func (s *Server) FrameAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.lookupFrame(w, r); !ok {
		return
	}
	switch r.PathValue("action") {
	case "stepinto", "stepover", "stepthrough", "restart":
		writeJSON(w, http.StatusOK, struct{}{})
	default:
		writeError(w, http.StatusBadRequest, "unknown action", nil)
	}
}

// CreateWorkspace handles POST /workspaces.
func (s *Server) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := &workspace{ID: uuid.NewString()}
	s.runtime.workspaces[ws.ID] = ws
	writeJSON(w, http.StatusOK, ws)
}

// ListWorkspaces handles GET /workspaces.
func (s *Server) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wss := []*workspace{}
	for _, ws := range s.runtime.workspaces {
		wss = append(wss, ws)
	}
	sort.Slice(wss, func(i, j int) bool { return wss[i].ID < wss[j].ID })
	writeJSON(w, http.StatusOK, wss)
}

// GetWorkspace handles GET /workspaces/{id}.
func (s *Server) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.runtime.workspaces[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "workspace not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// DeleteWorkspace handles DELETE /workspaces/{id}.
func (s *Server) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.runtime.workspaces[id]; !ok {
		writeError(w, http.StatusNotFound, "workspace not found", nil)
		return
	}
	delete(s.runtime.workspaces, id)
	w.WriteHeader(http.StatusNoContent)
}

// ListObjects handles GET /objects.
func (s *Server) ListObjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs := []*object{}
	for _, o := range s.runtime.objects {
		objs = append(objs, o)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	writeJSON(w, http.StatusOK, objs)
}

// UnpinAll handles DELETE /objects.
func (s *Server) UnpinAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.runtime.objects = make(map[string]*object)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// GetObject handles GET /objects/{id}.
func (s *Server) GetObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.runtime.objects[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "object not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UnpinObject handles DELETE /objects/{id}.
func (s *Server) UnpinObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.runtime.objects[id]; !ok {
		writeError(w, http.StatusNotFound, "object not found", nil)
		return
	}
	delete(s.runtime.objects, id)
	w.WriteHeader(http.StatusNoContent)
}

// ObjectPath handles GET /objects/{id}/{path...}. Simulated objects have no
// slots, so only the listing views answer.
func (s *Server) ObjectPath(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runtime.objects[r.PathValue("id")]; !ok {
		writeError(w, http.StatusNotFound, "object not found", nil)
		return
	}
	switch r.PathValue("path") {
	case "named-slots", "indexed-slots", "instance-variables", "custom-views":
		writeJSON(w, http.StatusOK, []struct{}{})
	default:
		writeError(w, http.StatusNotFound, "slot not found", nil)
	}
}
