// Package scaling provides the linear range transforms used by masquerade
// devices.
//
// Two directions are supported:
//
//   - BaseToMasq maps a base device value in [low, high] onto the 0-100
//     range shown by a masquerade dimmer.
//   - MasqToBase maps a 0-100 level back onto [low, high] and renders it in
//     the textual format the base device's action expects.
//
// Both use integer floor arithmetic, so they are approximate inverses. A
// round trip recovers the original value within Tolerance(low, high).
//
// The package has no state and is safe for concurrent use.
package scaling
