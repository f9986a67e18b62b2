// Package wire converts stage outputs to and from their transit form.
//
// Physical quantities travel as envelopes {"__value__": v, "__unit__": u}.
// Two serializers exist and they differ on purpose. SerializeQuantities
// wraps every element, unit-less ones as {"__value__": v}, and leaves NaN
// untouched. SerializeMapping recurses into nested mappings, replaces NaN
// floats with the string "NaN" and passes unit-less leaves through as they
// are. The NaN marker has no inverse.
//
// Codecs move whole tuples across a process boundary.
package wire
