// Package registry tracks the live set of relay connections.
//
// The registry:
//   - Keys members by identity; an identity never appears twice
//   - Treats double-add and remove-of-absent as no-ops
//   - Publishes an immutable snapshot on every change, so readers iterate
//     without locks while writers add and remove concurrently
//
// A snapshot reflects membership at the moment it was taken. Members removed
// later may still appear in it; callers check member state before acting.
package registry
