package remote

import (
	"context"
	"strconv"
)

// Runtime resources: evaluations, debuggers, workspaces, objects, test runs
// and profilers. These are ephemeral actions and always use direct calls.

// Evaluate starts an evaluation.
func (c *Client) Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	var eval Evaluation
	if err := c.postJSON(ctx, "/evaluations", req, &eval); err != nil {
		return nil, err
	}
	if eval.Expression == "" {
		eval.Expression = req.Expression
	}
	return &eval, nil
}

// Evaluations lists pending evaluations.
func (c *Client) Evaluations(ctx context.Context) ([]Evaluation, error) {
	var evals []Evaluation
	if err := c.getJSON(ctx, "/evaluations", &evals); err != nil {
		return nil, err
	}
	return evals, nil
}

// Evaluation returns one evaluation.
func (c *Client) Evaluation(ctx context.Context, id string) (*Evaluation, error) {
	var eval Evaluation
	if err := c.getJSON(ctx, "/evaluations/"+seg(id), &eval); err != nil {
		return nil, err
	}
	return &eval, nil
}

// CancelEvaluation stops and discards an evaluation.
func (c *Client) CancelEvaluation(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/evaluations/"+seg(id))
	return err
}

type debuggerRequest struct {
	Evaluation string `json:"evaluation"`
}

// CreateDebugger opens a debugger on a failed evaluation.
func (c *Client) CreateDebugger(ctx context.Context, evaluationID string) (*Debugger, error) {
	var d Debugger
	if err := c.postJSON(ctx, "/debuggers", debuggerRequest{Evaluation: evaluationID}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Debuggers lists open debuggers.
func (c *Client) Debuggers(ctx context.Context) ([]Debugger, error) {
	var ds []Debugger
	if err := c.getJSON(ctx, "/debuggers", &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func debuggerPath(id string) string {
	return "/debuggers/" + seg(id)
}

func framePath(id string, index int) string {
	return debuggerPath(id) + "/frames/" + strconv.Itoa(index)
}

// Frames returns the stack of a debugger.
func (c *Client) Frames(ctx context.Context, id string) ([]Frame, error) {
	var frames []Frame
	if err := c.getJSON(ctx, debuggerPath(id)+"/frames", &frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// Frame returns one frame of a debugger.
func (c *Client) Frame(ctx context.Context, id string, index int) (*Frame, error) {
	var f Frame
	if err := c.getJSON(ctx, framePath(id, index), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FrameBindings returns the variables visible in a frame.
func (c *Client) FrameBindings(ctx context.Context, id string, index int) ([]Binding, error) {
	var bs []Binding
	if err := c.getJSON(ctx, framePath(id, index)+"/bindings", &bs); err != nil {
		return nil, err
	}
	return bs, nil
}

func (c *Client) frameAction(ctx context.Context, id string, index int, action string) error {
	_, err := c.Post(ctx, framePath(id, index)+"/"+action, nil)
	return err
}

// StepInto steps into the next message send of a frame.
func (c *Client) StepInto(ctx context.Context, id string, index int) error {
	return c.frameAction(ctx, id, index, "stepinto")
}

// StepOver steps over the next message send of a frame.
func (c *Client) StepOver(ctx context.Context, id string, index int) error {
	return c.frameAction(ctx, id, index, "stepover")
}

// StepThrough steps through blocks of a frame.
func (c *Client) StepThrough(ctx context.Context, id string, index int) error {
	return c.frameAction(ctx, id, index, "stepthrough")
}

// Restart restarts a frame.
func (c *Client) Restart(ctx context.Context, id string, index int) error {
	return c.frameAction(ctx, id, index, "restart")
}

// Resume resumes the debugged process.
func (c *Client) Resume(ctx context.Context, id string) error {
	_, err := c.Post(ctx, debuggerPath(id)+"/resume", nil)
	return err
}

// Terminate terminates the debugged process.
func (c *Client) Terminate(ctx context.Context, id string) error {
	_, err := c.Post(ctx, debuggerPath(id)+"/terminate", nil)
	return err
}

// DeleteDebugger closes a debugger.
func (c *Client) DeleteDebugger(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, debuggerPath(id))
	return err
}

// CreateWorkspace opens a new workspace.
func (c *Client) CreateWorkspace(ctx context.Context) (*Workspace, error) {
	var ws Workspace
	if err := c.postJSON(ctx, "/workspaces", struct{}{}, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// Workspaces lists open workspaces.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var ws []Workspace
	if err := c.getJSON(ctx, "/workspaces", &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Workspace returns one workspace.
func (c *Client) Workspace(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	if err := c.getJSON(ctx, "/workspaces/"+seg(id), &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// DeleteWorkspace closes a workspace.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/workspaces/"+seg(id))
	return err
}

// Objects lists pinned objects.
func (c *Client) Objects(ctx context.Context) ([]Object, error) {
	var objs []Object
	if err := c.getJSON(ctx, "/objects", &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// Object returns a pinned object.
func (c *Client) Object(ctx context.Context, id string) (*Object, error) {
	var obj Object
	if err := c.getJSON(ctx, "/objects/"+seg(id), &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// UnpinObject releases a pinned object.
func (c *Client) UnpinObject(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "/objects/"+seg(id))
	return err
}

// UnpinAllObjects releases every pinned object.
func (c *Client) UnpinAllObjects(ctx context.Context) error {
	_, err := c.Delete(ctx, "/objects")
	return err
}

// ObjectSlot follows a slot path (e.g. "items/3") from a pinned object.
func (c *Client) ObjectSlot(ctx context.Context, id, path string) (*Object, error) {
	var obj Object
	if err := c.getJSON(ctx, "/objects/"+seg(id)+"/"+path, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (c *Client) objectSlots(ctx context.Context, id, kind string) ([]Object, error) {
	var slots []Object
	if err := c.getJSON(ctx, "/objects/"+seg(id)+"/"+kind, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// NamedSlots lists the named slots of an object.
func (c *Client) NamedSlots(ctx context.Context, id string) ([]Object, error) {
	return c.objectSlots(ctx, id, "named-slots")
}

// IndexedSlots lists the indexed slots of an object.
func (c *Client) IndexedSlots(ctx context.Context, id string) ([]Object, error) {
	return c.objectSlots(ctx, id, "indexed-slots")
}

// ObjectInstanceVariables lists the instance variables of an object.
func (c *Client) ObjectInstanceVariables(ctx context.Context, id string) ([]Variable, error) {
	var vars []Variable
	if err := c.getJSON(ctx, "/objects/"+seg(id)+"/instance-variables", &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// CustomViews returns backend-defined presentations of an object.
func (c *Client) CustomViews(ctx context.Context, id string) ([]map[string]any, error) {
	var views []map[string]any
	if err := c.getJSON(ctx, "/objects/"+seg(id)+"/custom-views", &views); err != nil {
		return nil, err
	}
	return views, nil
}

// TestRuns lists test runs.
func (c *Client) TestRuns(ctx context.Context) ([]TestRun, error) {
	var runs []TestRun
	if err := c.getJSON(ctx, "/test-runs", &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Profilers lists profiling sessions.
func (c *Client) Profilers(ctx context.Context) ([]Profiler, error) {
	var ps []Profiler
	if err := c.getJSON(ctx, "/profilers", &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// ProfilerTree returns the call tree of a profiler.
func (c *Client) ProfilerTree(ctx context.Context, id string) ([]byte, error) {
	return c.Get(ctx, "/profilers/"+seg(id)+"/tree")
}

// ProfilerRanking returns the method ranking of a profiler.
func (c *Client) ProfilerRanking(ctx context.Context, id string) ([]byte, error) {
	return c.Get(ctx, "/profilers/"+seg(id)+"/ranking")
}
