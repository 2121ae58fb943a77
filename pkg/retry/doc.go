// Package retry provides exponential backoff for transient failures.
//
// The key-value store implementations and manager initialization paths use
// it to ride out brief backend outages:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return store.Write(ctx, key, value)
//	})
//
//	entry, err := retry.DoWithResult(ctx, cfg, func() (jetstream.KeyValueEntry, error) {
//	    return kv.Get(ctx, key)
//	})
//
// Errors that must not be retried (validation failures, missing keys) are
// wrapped with NonRetryable so Do fails immediately:
//
//	return retry.NonRetryable(fmt.Errorf("malformed record %q", key))
package retry
