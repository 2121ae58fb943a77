// Package feature implements the capability contract between adapters and
// their callers: the registry mapping capability URIs to live
// implementations, dynamically described extension features, and the wrapper
// layer every external caller goes through.
//
// Standard features are compile-time Go interfaces (TagSearch, SnapshotRead,
// SnapshotPush, AssetModelBrowse, EventPush, HealthPush,
// ConfigurationChanges) identified by well-known URIs. Registration verifies
// that the implementation actually satisfies the declared interface, turning
// what would be a call-time assertion failure into a construction-time
// error. Extension features carry their operation list as explicit data with
// JSON-schema validated inputs, so local and remote callers consume the same
// description.
//
// The Wrapper guards every call: call-context validation, then the
// authorization gate, then metrics, and only then dispatch. Denied calls
// never reach the inner implementation. Streaming results keep their metrics
// span open until the stream completes.
package feature
