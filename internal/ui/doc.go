// Package ui renders pipeline results as styled terminal tables.
//
// Two static views are provided: the cluster overview (style groups with
// sizes, descriptors, and sample tracks) and the validation summary (top
// scored tracks with recommendations). Both render with lipgloss and are
// printed once after the run; there is no interactive event loop.
package ui
