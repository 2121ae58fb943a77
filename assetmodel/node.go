// Package assetmodel provides the asset-model node forest and the persistent
// Manager that maintains it: flat node records with parent back-references, a
// derived HasChildren flag, recursive delete, and cycle-safe reparenting.
package assetmodel

import (
	"github.com/google/uuid"

	"github.com/c360/adapterkit/errors"
)

// Property is a bespoke name/value pair attached to a node.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is one entry in the asset forest. Nodes reference their parent by ID;
// there is no maintained child list. HasChildren is derived from the current
// parent pointers of all other nodes and is recomputed by every mutating
// operation, never set by callers.
type Node struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"` // empty for roots
	HasChildren bool       `json:"has_children"`
	TagID       string     `json:"tag_id,omitempty"` // optional data reference
	Properties  []Property `json:"properties,omitempty"`
}

func (n Node) clone() Node {
	out := n
	if n.Properties != nil {
		out.Properties = make([]Property, len(n.Properties))
		copy(out.Properties, n.Properties)
	}
	return out
}

// Builder accumulates node fields and validates at Build time.
type Builder struct {
	node Node
}

// NewNode starts a builder for an asset-model node.
func NewNode(name string) *Builder {
	return &Builder{node: Node{Name: name}}
}

// WithID sets an explicit node ID. A UUID is generated when omitted.
func (b *Builder) WithID(id string) *Builder {
	b.node.ID = id
	return b
}

// WithDescription sets the human-readable description.
func (b *Builder) WithDescription(description string) *Builder {
	b.node.Description = description
	return b
}

// WithParent places the node under the given parent. Roots omit this.
func (b *Builder) WithParent(parentID string) *Builder {
	b.node.ParentID = parentID
	return b
}

// WithTag links the node to a tag definition.
func (b *Builder) WithTag(tagID string) *Builder {
	b.node.TagID = tagID
	return b
}

// WithProperty appends a bespoke property.
func (b *Builder) WithProperty(name, value string) *Builder {
	b.node.Properties = append(b.node.Properties, Property{Name: name, Value: value})
	return b
}

// Build validates the accumulated fields and returns the node.
func (b *Builder) Build() (Node, error) {
	if b.node.Name == "" {
		return Node{}, errors.WrapInvalid(errors.ErrValidation, "assetmodel.Builder", "Build", "name validation")
	}

	node := b.node.clone()
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if node.ParentID == node.ID {
		return Node{}, errors.WrapInvalid(errors.ErrValidation, "assetmodel.Builder", "Build", "parent validation")
	}
	return node, nil
}
