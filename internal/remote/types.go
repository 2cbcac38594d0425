package remote

import "encoding/json"

// --- Wire types ---

// Package is a code package of the image.
type Package struct {
	Name    string   `json:"name"`
	Classes []string `json:"classes,omitempty"`
}

// Class describes a class. Subclasses is only filled by tree queries.
type Class struct {
	Name       string   `json:"name"`
	Superclass string   `json:"superclass,omitempty"`
	Package    string   `json:"package,omitempty"`
	Definition string   `json:"definition,omitempty"`
	Comment    string   `json:"comment,omitempty"`
	Variable   bool     `json:"variable,omitempty"`
	Subclasses []*Class `json:"subclasses,omitempty"`
}

// Method is a compiled method. Class plus Selector identify it.
type Method struct {
	Class       string          `json:"class"`
	Selector    string          `json:"selector"`
	Source      string          `json:"source"`
	Package     string          `json:"package,omitempty"`
	Category    string          `json:"category,omitempty"`
	Author      string          `json:"author,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Bytecodes   string          `json:"bytecodes,omitempty"`
	Disassembly string          `json:"disassembly,omitempty"`
	AST         json.RawMessage `json:"ast,omitempty"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// Variable is an instance or class variable.
type Variable struct {
	Name  string `json:"name"`
	Class string `json:"class,omitempty"`
	Type  string `json:"type,omitempty"`
}

// SearchResultType is the kind of a search hit.
type SearchResultType string

// Search hit kinds.
const (
	ResultPackage  SearchResultType = "package"
	ResultClass    SearchResultType = "class"
	ResultSelector SearchResultType = "selector"
	ResultPool     SearchResultType = "pool"
)

// SearchResult is one hit of GET /search.
type SearchResult struct {
	Type SearchResultType `json:"type"`
	Text string           `json:"text"`
}

// Evaluation is a running or finished expression evaluation.
type Evaluation struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	State      string `json:"state,omitempty"`
}

// EvaluationContext scopes an evaluation to a workspace, object, class or frame.
type EvaluationContext struct {
	Workspace string `json:"workspace,omitempty"`
	Object    string `json:"object,omitempty"`
	Class     string `json:"class,omitempty"`
	Debugger  string `json:"debugger,omitempty"`
	Frame     int    `json:"frame,omitempty"`
}

// EvaluationRequest is the body of POST /evaluations.
type EvaluationRequest struct {
	Expression string             `json:"expression"`
	Sync       bool               `json:"sync,omitempty"`
	Pin        bool               `json:"pin,omitempty"`
	Context    *EvaluationContext `json:"context,omitempty"`
}

// Object is a pinned object of the image.
type Object struct {
	ID          string `json:"id"`
	Class       string `json:"class"`
	PrintString string `json:"printString,omitempty"`
	Indexable   bool   `json:"indexable,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// Debugger is an open debugger session.
type Debugger struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Frames      []Frame `json:"frames,omitempty"`
}

// Frame is one activation of a debugger stack.
type Frame struct {
	Index  int     `json:"index"`
	Label  string  `json:"label"`
	Class  string  `json:"class,omitempty"`
	Method *Method `json:"method,omitempty"`
}

// Binding is a name/value pair of a frame or workspace.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Workspace is a scratch evaluation area with its own bindings.
type Workspace struct {
	ID       string    `json:"id"`
	Source   string    `json:"source,omitempty"`
	Bindings []Binding `json:"bindings,omitempty"`
}

// TestRun is a test suite execution.
type TestRun struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Profiler is a profiling session.
type Profiler struct {
	ID      string          `json:"id"`
	Tree    json.RawMessage `json:"tree,omitempty"`
	Ranking json.RawMessage `json:"ranking,omitempty"`
}
