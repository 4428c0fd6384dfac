// Package freshness keeps a service record's open/closed flag current.
//
// Sync is called on every single-record read. It consults the external
// status source only when the record carries an external reference and its
// last successful check is at least one TTL old. Fetch failures never reach
// the caller: the record comes back exactly as it was stored, and because
// StatusLastChecked stays untouched the next read tries again.
//
// There is no background sweep and no coalescing of concurrent reads. Two
// simultaneous reads of the same stale record may both fetch; the later save
// wins.
package freshness
