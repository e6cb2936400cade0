// Package model defines the resolver-owned, immutable data consumed by the
// card form engine: field definitions with their ordered validation rules,
// network products (with optional co-brand alternatives), IIN lookup details
// and the account-on-file overlay. Values in this package are never mutated by
// the engine; live form state lives in package field.
package model
