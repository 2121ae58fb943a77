package feature

import (
	"encoding/json"
	"strings"
)

// URI is the stable identity of a capability. Standard capabilities use the
// adapterkit scheme; extensions supply their own absolute URIs.
type URI string

// Well-known standard capability URIs.
const (
	URITagSearch        URI = "adapterkit://features/tag-search"
	URISnapshotRead     URI = "adapterkit://features/snapshot-read"
	URISnapshotPush     URI = "adapterkit://features/snapshot-push"
	URIAssetModelBrowse URI = "adapterkit://features/asset-model-browse"
	URIEventPush        URI = "adapterkit://features/event-push"
	URIHealthPush       URI = "adapterkit://features/health-push"
	URIConfigChanges    URI = "adapterkit://features/configuration-changes"
)

// ShortName returns the last path segment of the URI, the name used for
// wire-protocol dispatch of built-in capabilities.
func (u URI) ShortName() string {
	s := strings.TrimRight(string(u), "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Kind distinguishes compile-time-known capabilities from dynamically
// described ones.
type Kind int

// Capability kinds.
const (
	KindStandard Kind = iota
	KindExtension
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// OperationDescriptor describes one callable operation of an extension
// feature. Schemas are JSON Schema documents; a nil schema skips validation
// for that direction.
type OperationDescriptor struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// Descriptor identifies a capability: its URI, display metadata, kind, and,
// for extensions, the operation list.
type Descriptor struct {
	URI         URI                   `json:"uri"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Category    string                `json:"category,omitempty"`
	Kind        Kind                  `json:"kind"`
	Operations  []OperationDescriptor `json:"operations,omitempty"`
}

// StandardDescriptor builds the descriptor for a well-known capability.
func StandardDescriptor(uri URI) Descriptor {
	return Descriptor{
		URI:      uri,
		Name:     uri.ShortName(),
		Category: "standard",
		Kind:     KindStandard,
	}
}
