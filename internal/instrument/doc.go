// Package instrument owns the immutable description of the telescope array
// and the per-telescope camera geometry derived from it.
//
// The description is loaded once per stage instance from a bundled,
// gzip-compressed CBOR asset and never mutated afterwards. Camera geometry
// is inferred lazily per telescope id and memoised in a bounded
// GeometryCache owned by the stage instance; nothing here is shared across
// instances.
package instrument
