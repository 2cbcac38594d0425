package remote

import (
	"context"
	"errors"
	"fmt"
)

// ChangeType tags the variant of a Change.
type ChangeType string

// Change types understood by the change log.
const (
	AddPackage     ChangeType = "AddPackage"
	RemovePackage  ChangeType = "RemovePackage"
	RenamePackage  ChangeType = "RenamePackage"
	AddClass       ChangeType = "AddClass"
	RemoveClass    ChangeType = "RemoveClass"
	RenameClass    ChangeType = "RenameClass"
	CommentClass   ChangeType = "CommentClass"
	AddInstVar     ChangeType = "AddInstanceVariable"
	RemoveInstVar  ChangeType = "RemoveInstanceVariable"
	RenameInstVar  ChangeType = "RenameInstanceVariable"
	AddClassVar    ChangeType = "AddClassVariable"
	RemoveClassVar ChangeType = "RemoveClassVariable"
	RenameClassVar ChangeType = "RenameClassVariable"
	AddCategory    ChangeType = "AddCategory"
	RemoveCategory ChangeType = "RemoveCategory"
	RenameCategory ChangeType = "RenameCategory"
	AddMethod      ChangeType = "AddMethod"
	RemoveMethod   ChangeType = "RemoveMethod"
	ClassifyMethod ChangeType = "ClassifyMethod"
	RenameMethod   ChangeType = "RenameMethod"
)

// Change is one code or package mutation in change-log form.
// Which fields are meaningful depends on Type; see Validate.
type Change struct {
	Type      ChangeType `json:"type"`
	Author    string     `json:"author"`
	ID        string     `json:"id,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Label     string     `json:"label,omitempty"`

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

// Validate checks the fields each variant needs.
func (ch *Change) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%s change: missing %s", ch.Type, field)
	}
	switch ch.Type {
	case AddPackage, RemovePackage:
		if ch.Package == "" {
			return missing("package")
		}
	case RenamePackage:
		if ch.Package == "" {
			return missing("package")
		}
		if ch.NewName == "" {
			return missing("newName")
		}
	case AddClass:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Definition == "" {
			return missing("definition")
		}
	case RemoveClass:
		if ch.ClassName == "" {
			return missing("className")
		}
	case RenameClass:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.NewName == "" {
			return missing("newName")
		}
	case CommentClass:
		if ch.ClassName == "" {
			return missing("className")
		}
	case AddInstVar, RemoveInstVar, AddClassVar, RemoveClassVar:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Variable == "" {
			return missing("variable")
		}
	case RenameInstVar, RenameClassVar:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Variable == "" {
			return missing("variable")
		}
		if ch.NewName == "" {
			return missing("newName")
		}
	case AddCategory, RemoveCategory:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Category == "" {
			return missing("category")
		}
	case RenameCategory:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Category == "" {
			return missing("category")
		}
		if ch.NewName == "" {
			return missing("newName")
		}
	case AddMethod:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.SourceCode == "" {
			return missing("sourceCode")
		}
	case RemoveMethod:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Selector == "" {
			return missing("selector")
		}
	case ClassifyMethod:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Selector == "" {
			return missing("selector")
		}
		if ch.Category == "" {
			return missing("category")
		}
	case RenameMethod:
		if ch.ClassName == "" {
			return missing("className")
		}
		if ch.Selector == "" {
			return missing("selector")
		}
		if ch.NewSelector == "" {
			return missing("newSelector")
		}
	default:
		return fmt.Errorf("unknown change type %q", ch.Type)
	}
	return nil
}

// LastChanges returns the backend's change log.
func (c *Client) LastChanges(ctx context.Context) ([]Change, error) {
	var changes []Change
	if err := c.getJSON(ctx, "/changes", &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// SubmitChange appends a change to the backend's change log.
//
// The backend must have negotiated change-log support; otherwise the call
// fails with ErrChangesUnsupported. The change is stamped with the client's
// author before sending. The applied change, as echoed by the backend, is
// passed to ReportChange and returned.
func (c *Client) SubmitChange(ctx context.Context, change *Change) (*Change, error) {
	if change == nil {
		return nil, errors.New("nil change")
	}
	supported, err := c.NegotiateChanges(ctx)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, fmt.Errorf("%w: %s", ErrChangesUnsupported, change.Type)
	}

	stamped, err := c.stamp(change)
	if err != nil {
		return nil, err
	}

	applied := stamped
	var echoed Change
	if err := c.postJSON(ctx, "/changes", stamped, &echoed); err != nil {
		return nil, err
	}
	if echoed.Type != "" {
		applied = &echoed
	}

	if c.ReportChange != nil {
		c.ReportChange(applied)
	}
	return applied, nil
}

// stamp returns a validated copy of change carrying the client's author.
func (c *Client) stamp(change *Change) (*Change, error) {
	if c.Author == "" {
		return nil, ErrNoAuthor
	}
	stamped := *change
	stamped.Author = c.Author
	if err := stamped.Validate(); err != nil {
		return nil, err
	}
	return &stamped, nil
}

// mutate applies change through the change log when the backend supports it
// and through direct otherwise. Every mutating operation goes through here.
func (c *Client) mutate(ctx context.Context, change *Change, direct func(ctx context.Context) error) error {
	stamped, err := c.stamp(change)
	if err != nil {
		return err
	}

	supported, err := c.NegotiateChanges(ctx)
	if err != nil {
		return err
	}
	if supported {
		_, err := c.SubmitChange(ctx, stamped)
		return err
	}

	if err := direct(ctx); err != nil {
		return err
	}
	if c.ReportChange != nil {
		c.ReportChange(stamped)
	}
	return nil
}
