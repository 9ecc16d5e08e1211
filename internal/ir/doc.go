// Package ir is the hardware dataflow representation the rewriting bridge
// reads from and writes back to.
//
// A Unit is an append-only instruction sequence built with a Builder.
// Values are plain integers: a unit's arguments occupy ids 0..n-1 and each
// result-producing instruction defines the next id. Immediates (integer and
// time constants, external unit references) serialize to RFC 8785 canonical
// JSON payloads so they can ride through the term algebra as opaque
// string literals.
//
// ir imports nothing internal; every other package builds on it.
package ir
