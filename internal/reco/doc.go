// Package reco reconstructs the shower axis from the Hillas moments of
// several telescopes.
//
// Each telescope's image axis and pointing define a plane that contains the
// shower axis. The shower direction is the weighted intersection of those
// planes, and the core position is the weighted least-squares intersection
// of the planes' traces on the ground. Failures are reported as a FitError
// carrying one of a small closed set of kinds.
package reco
