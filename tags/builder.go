package tags

import (
	"github.com/google/uuid"

	"github.com/c360/adapterkit/errors"
)

// Builder accumulates definition fields and validates at Build time.
type Builder struct {
	def Definition
}

// NewDefinition starts a builder for a tag definition.
func NewDefinition(name string) *Builder {
	return &Builder{def: Definition{Name: name, DataType: DataTypeFloat}}
}

// WithID sets an explicit tag ID. A UUID is generated when omitted.
func (b *Builder) WithID(id string) *Builder {
	b.def.ID = id
	return b
}

// WithDescription sets the human-readable description.
func (b *Builder) WithDescription(description string) *Builder {
	b.def.Description = description
	return b
}

// WithDataType sets the measurement data type.
func (b *Builder) WithDataType(dt DataType) *Builder {
	b.def.DataType = dt
	return b
}

// WithProperty appends a bespoke property.
func (b *Builder) WithProperty(name, value string) *Builder {
	b.def.Properties = append(b.def.Properties, Property{Name: name, Value: value})
	return b
}

// WithSnapshotRead marks the tag as readable via snapshot queries.
func (b *Builder) WithSnapshotRead() *Builder {
	b.def.Features.SnapshotRead = true
	return b
}

// WithSnapshotPush marks the tag as eligible for push subscriptions.
func (b *Builder) WithSnapshotPush() *Builder {
	b.def.Features.SnapshotPush = true
	return b
}

// WithHistoryRead marks the tag as readable via history queries.
func (b *Builder) WithHistoryRead() *Builder {
	b.def.Features.HistoryRead = true
	return b
}

// Build validates the accumulated fields and returns the definition.
func (b *Builder) Build() (Definition, error) {
	if b.def.Name == "" {
		return Definition{}, errors.WrapInvalid(errors.ErrValidation, "tags.Builder", "Build", "name validation")
	}
	switch b.def.DataType {
	case DataTypeFloat, DataTypeInt, DataTypeBool, DataTypeString, DataTypeUnknown:
	default:
		return Definition{}, errors.WrapInvalid(errors.ErrValidation, "tags.Builder", "Build", "data type validation")
	}

	def := b.def.clone()
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	return def, nil
}
