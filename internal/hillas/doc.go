// Package hillas owns per-telescope image analysis: tail-cuts cleaning of
// a raw pixel-charge image and extraction of the Hillas shape moments
// from the cleaned image.
//
// Both operations are pure functions of the camera geometry and the image.
// Extraction failures surface as ErrParameterization; callers decide what a
// failure means for the event as a whole.
package hillas
