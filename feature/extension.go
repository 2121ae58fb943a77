package feature

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/adapterkit/errors"
)

// OperationHandler implements one extension operation over opaque JSON
// payloads.
type OperationHandler func(ctx context.Context, input []byte) ([]byte, error)

type extensionOp struct {
	desc    OperationDescriptor
	schema  *gojsonschema.Schema // nil when the operation declares no input schema
	handler OperationHandler
}

// Extension is a dynamically described capability: a URI plus an explicit
// list of named operations, each with an optional JSON-schema validated
// input. Extensions satisfy the Caller contract, so local and remote
// dispatch consume the same description.
type Extension struct {
	uri         URI
	name        string
	description string
	category    string

	mu  sync.RWMutex
	ops map[string]extensionOp
}

// NewExtension creates an extension feature. The URI must be non-empty and
// should be globally unique, by convention an absolute URI under the
// vendor's namespace.
func NewExtension(uri URI, name, description string) (*Extension, error) {
	if uri == "" || name == "" {
		return nil, errors.WrapInvalid(errors.ErrValidation, "feature.Extension", "NewExtension", "identity validation")
	}
	return &Extension{
		uri:         uri,
		name:        name,
		description: description,
		category:    "extension",
		ops:         make(map[string]extensionOp),
	}, nil
}

// AddOperation declares an operation and its handler. The input schema, when
// present, is compiled now so a malformed schema fails at construction, not
// on the first call. Redeclaring an operation name replaces it.
func (e *Extension) AddOperation(desc OperationDescriptor, handler OperationHandler) error {
	if desc.Name == "" || handler == nil {
		return errors.WrapInvalid(errors.ErrValidation, "feature.Extension", "AddOperation", "operation validation")
	}

	var schema *gojsonschema.Schema
	if len(desc.InputSchema) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(desc.InputSchema))
		if err != nil {
			return errors.WrapInvalid(err, "feature.Extension", "AddOperation", "schema compile")
		}
		schema = compiled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops[desc.Name] = extensionOp{desc: desc, schema: schema, handler: handler}
	return nil
}

// Descriptor implements Caller. Operations are listed in name order.
func (e *Extension) Descriptor() Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ops := make([]OperationDescriptor, 0, len(e.ops))
	for _, op := range e.ops {
		ops = append(ops, op.desc)
	}
	sortOperations(ops)

	return Descriptor{
		URI:         e.uri,
		Name:        e.name,
		Description: e.description,
		Category:    e.category,
		Kind:        KindExtension,
		Operations:  ops,
	}
}

// CallOperation implements Caller: validates input against the operation's
// schema, then invokes the handler.
func (e *Extension) CallOperation(ctx context.Context, operation string, input []byte) ([]byte, error) {
	e.mu.RLock()
	op, ok := e.ops[operation]
	e.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(errors.ErrOperationNotFound, "feature.Extension", "CallOperation", operation)
	}

	if op.schema != nil {
		result, err := op.schema.Validate(gojsonschema.NewBytesLoader(input))
		if err != nil {
			return nil, errors.WrapInvalid(err, "feature.Extension", "CallOperation", "input parse")
		}
		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, re := range result.Errors() {
				details = append(details, re.String())
			}
			return nil, errors.WrapInvalid(errors.ErrValidation, "feature.Extension", "CallOperation",
				"input validation: "+strings.Join(details, "; "))
		}
	}

	return op.handler(ctx, input)
}

func sortOperations(ops []OperationDescriptor) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
}
