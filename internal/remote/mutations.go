package remote

import (
	"context"
)

// Mutations. Each builds its Change and hands it to mutate together with the
// equivalent direct call; mutate picks the path from the negotiated mode.

type nameRequest struct {
	Name string `json:"name"`
}

type classRequest struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Package    string `json:"package,omitempty"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type methodRequest struct {
	Selector string `json:"selector,omitempty"`
	Source   string `json:"source,omitempty"`
	Category string `json:"category,omitempty"`
}

func (c *Client) directPost(path string, payload any) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.Post(ctx, path, payload)
		return err
	}
}

func (c *Client) directPut(path string, payload any) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.Put(ctx, path, payload)
		return err
	}
}

func (c *Client) directDelete(path string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.Delete(ctx, path)
		return err
	}
}

// AddPackage creates a package.
func (c *Client) AddPackage(ctx context.Context, name string) error {
	ch := &Change{Type: AddPackage, Package: name}
	return c.mutate(ctx, ch, c.directPost("/packages", nameRequest{Name: name}))
}

// RemovePackage deletes a package.
func (c *Client) RemovePackage(ctx context.Context, name string) error {
	ch := &Change{Type: RemovePackage, Package: name}
	return c.mutate(ctx, ch, c.directDelete("/packages/"+seg(name)))
}

// RenamePackage renames a package.
func (c *Client) RenamePackage(ctx context.Context, name, newName string) error {
	ch := &Change{Type: RenamePackage, Package: name, NewName: newName}
	return c.mutate(ctx, ch, c.directPut("/packages/"+seg(name), nameRequest{Name: newName}))
}

// DefineClass creates or redefines a class from its definition text.
func (c *Client) DefineClass(ctx context.Context, pkg, class, definition string) error {
	ch := &Change{Type: AddClass, Package: pkg, ClassName: class, Definition: definition}
	req := classRequest{Name: class, Definition: definition, Package: pkg}
	return c.mutate(ctx, ch, c.directPost("/classes", req))
}

// RemoveClass deletes a class.
func (c *Client) RemoveClass(ctx context.Context, class string) error {
	ch := &Change{Type: RemoveClass, ClassName: class}
	return c.mutate(ctx, ch, c.directDelete("/classes/"+seg(class)))
}

// RenameClass renames a class.
func (c *Client) RenameClass(ctx context.Context, class, newName string) error {
	ch := &Change{Type: RenameClass, ClassName: class, NewName: newName}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class), nameRequest{Name: newName}))
}

// CommentClass replaces the class comment.
func (c *Client) CommentClass(ctx context.Context, class, comment string) error {
	ch := &Change{Type: CommentClass, ClassName: class, Comment: comment}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class)+"/comment", commentRequest{Comment: comment}))
}

// AddInstanceVariable adds an instance variable to a class.
func (c *Client) AddInstanceVariable(ctx context.Context, class, variable string) error {
	ch := &Change{Type: AddInstVar, ClassName: class, Variable: variable}
	return c.mutate(ctx, ch, c.directPost("/classes/"+seg(class)+"/instance-variables", nameRequest{Name: variable}))
}

// RemoveInstanceVariable removes an instance variable.
func (c *Client) RemoveInstanceVariable(ctx context.Context, class, variable string) error {
	ch := &Change{Type: RemoveInstVar, ClassName: class, Variable: variable}
	return c.mutate(ctx, ch, c.directDelete("/classes/"+seg(class)+"/instance-variables/"+seg(variable)))
}

// RenameInstanceVariable renames an instance variable.
func (c *Client) RenameInstanceVariable(ctx context.Context, class, variable, newName string) error {
	ch := &Change{Type: RenameInstVar, ClassName: class, Variable: variable, NewName: newName}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class)+"/instance-variables/"+seg(variable), nameRequest{Name: newName}))
}

// AddClassVariable adds a class variable.
func (c *Client) AddClassVariable(ctx context.Context, class, variable string) error {
	ch := &Change{Type: AddClassVar, ClassName: class, Variable: variable}
	return c.mutate(ctx, ch, c.directPost("/classes/"+seg(class)+"/class-variables", nameRequest{Name: variable}))
}

// RemoveClassVariable removes a class variable.
func (c *Client) RemoveClassVariable(ctx context.Context, class, variable string) error {
	ch := &Change{Type: RemoveClassVar, ClassName: class, Variable: variable}
	return c.mutate(ctx, ch, c.directDelete("/classes/"+seg(class)+"/class-variables/"+seg(variable)))
}

// RenameClassVariable renames a class variable.
func (c *Client) RenameClassVariable(ctx context.Context, class, variable, newName string) error {
	ch := &Change{Type: RenameClassVar, ClassName: class, Variable: variable, NewName: newName}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class)+"/class-variables/"+seg(variable), nameRequest{Name: newName}))
}

// AddCategory adds a method category to a class.
func (c *Client) AddCategory(ctx context.Context, class, category string) error {
	ch := &Change{Type: AddCategory, ClassName: class, Category: category}
	return c.mutate(ctx, ch, c.directPost("/classes/"+seg(class)+"/categories", nameRequest{Name: category}))
}

// RemoveCategory removes a method category.
func (c *Client) RemoveCategory(ctx context.Context, class, category string) error {
	ch := &Change{Type: RemoveCategory, ClassName: class, Category: category}
	return c.mutate(ctx, ch, c.directDelete("/classes/"+seg(class)+"/categories/"+seg(category)))
}

// RenameCategory renames a method category.
func (c *Client) RenameCategory(ctx context.Context, class, category, newName string) error {
	ch := &Change{Type: RenameCategory, ClassName: class, Category: category, NewName: newName}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class)+"/categories/"+seg(category), nameRequest{Name: newName}))
}

// CompileMethod compiles source into class, creating or replacing the method.
// selector may be empty; the backend derives it from the source.
func (c *Client) CompileMethod(ctx context.Context, class, selector, source, category string) error {
	ch := &Change{Type: AddMethod, ClassName: class, Selector: selector, SourceCode: source, Category: category}
	req := methodRequest{Selector: selector, Source: source, Category: category}
	return c.mutate(ctx, ch, c.directPost("/classes/"+seg(class)+"/methods", req))
}

// RemoveMethod deletes a method.
func (c *Client) RemoveMethod(ctx context.Context, class, selector string) error {
	ch := &Change{Type: RemoveMethod, ClassName: class, Selector: selector}
	return c.mutate(ctx, ch, c.directDelete("/classes/"+seg(class)+"/methods/"+seg(selector)))
}

// ClassifyMethod moves a method to another category.
func (c *Client) ClassifyMethod(ctx context.Context, class, selector, category string) error {
	ch := &Change{Type: ClassifyMethod, ClassName: class, Selector: selector, Category: category}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class)+"/methods/"+seg(selector), methodRequest{Category: category}))
}

// RenameMethod renames a selector within one class.
func (c *Client) RenameMethod(ctx context.Context, class, selector, newSelector string) error {
	ch := &Change{Type: RenameMethod, ClassName: class, Selector: selector, NewSelector: newSelector}
	return c.mutate(ctx, ch, c.directPut("/classes/"+seg(class)+"/methods/"+seg(selector), methodRequest{Selector: newSelector}))
}
