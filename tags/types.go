// Package tags provides the tag definition model and the persistent
// TagManager that indexes definitions in memory while mirroring them to a
// key-value store.
package tags

import "time"

// DataType identifies the value type of a tag's measurements.
type DataType string

// Supported tag data types.
const (
	DataTypeFloat   DataType = "float"
	DataTypeInt     DataType = "int"
	DataTypeBool    DataType = "bool"
	DataTypeString  DataType = "string"
	DataTypeUnknown DataType = "unknown"
)

// Property is a bespoke name/value pair attached to a tag definition.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Features flags which optional capabilities a tag participates in.
type Features struct {
	SnapshotRead bool `json:"snapshot_read"`
	SnapshotPush bool `json:"snapshot_push"`
	HistoryRead  bool `json:"history_read"`
}

// Definition is an immutable measurement descriptor. The ID is assigned once
// and stable; the name is the mutable human-facing identifier. Callers always
// receive copies, never the manager's cached instance.
type Definition struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DataType    DataType   `json:"data_type"`
	Properties  []Property `json:"properties,omitempty"`
	Features    Features   `json:"features"`
}

// clone returns a deep copy so cached definitions cannot be mutated through
// returned values.
func (d Definition) clone() Definition {
	out := d
	if d.Properties != nil {
		out.Properties = make([]Property, len(d.Properties))
		copy(out.Properties, d.Properties)
	}
	return out
}

// Quality describes the trustworthiness of a snapshot value.
type Quality string

// Snapshot value qualities.
const (
	QualityGood      Quality = "good"
	QualityUncertain Quality = "uncertain"
	QualityBad       Quality = "bad"
)

// Value is one snapshot measurement for a tag.
type Value struct {
	TagID     string    `json:"tag_id"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Value     any       `json:"value"`
	Quality   Quality   `json:"quality"`
}

// NewValue builds a good-quality snapshot value with a UTC timestamp.
func NewValue(tagID string, ts time.Time, value any) Value {
	return Value{
		TagID:     tagID,
		Timestamp: ts.UTC(),
		Value:     value,
		Quality:   QualityGood,
	}
}
