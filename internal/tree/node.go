// Package tree provides the lazily loaded package/class/method hierarchy of
// a Webside image.
package tree

import (
	"fmt"

	"github.com/guillermoamaral/VSCside/internal/remote"
)

// Kind is the variant of a Node.
type Kind string

const (
	KindSearch       Kind = "Search"
	KindPackageGroup Kind = "PackageGroup"
	KindPackage      Kind = "Package"
	KindClass        Kind = "Class"
	KindMethod       Kind = "Method"
)

// NodeID identifies a node within one Provider. IDs are never reused.
type NodeID uint64

// Node is one entry of the tree. Exactly one of Package, Class and Method is
// set for the data-carrying kinds.
type Node struct {
	ID    NodeID
	Kind  Kind
	Label string

	Package *remote.Package
	Class   *remote.Class
	Method  *remote.Method
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)#%d", n.Kind, n.Label, n.ID)
}

// Command identifiers attached to tree items.
const (
	CommandOpenSearch = "webside.openSearch"
	CommandOpenClass  = "webside.openClass"
	CommandOpenMethod = "webside.openMethod"
)

// Command is the action run when an item is selected.
type Command struct {
	ID        string
	Title     string
	ClassName string
	Selector  string
}

// Collapsible is the expansion state of an item.
type Collapsible int

const (
	CollapsibleNone Collapsible = iota
	CollapsibleCollapsed
)

// Item is the presentation of a Node.
type Item struct {
	Label       string
	Icon        string
	Collapsible Collapsible
	Command     *Command
}

// TreeItem returns the presentation of node.
func TreeItem(node *Node) Item {
	switch node.Kind {
	case KindSearch:
		return Item{
			Label:   node.Label,
			Icon:    "search",
			Command: &Command{ID: CommandOpenSearch, Title: "Search"},
		}
	case KindPackageGroup:
		return Item{Label: node.Label, Icon: "library", Collapsible: CollapsibleCollapsed}
	case KindPackage:
		return Item{Label: node.Label, Icon: "package", Collapsible: CollapsibleCollapsed}
	case KindClass:
		return Item{
			Label:       node.Label,
			Icon:        "symbol-class",
			Collapsible: CollapsibleCollapsed,
			Command:     &Command{ID: CommandOpenClass, Title: "Open Class", ClassName: node.Class.Name},
		}
	case KindMethod:
		return Item{
			Label: node.Label,
			Icon:  "symbol-method",
			Command: &Command{
				ID:        CommandOpenMethod,
				Title:     "Open Method",
				ClassName: node.Method.Class,
				Selector:  node.Method.Selector,
			},
		}
	default:
		panic(fmt.Sprintf("tree: unhandled node kind %q", node.Kind))
	}
}
