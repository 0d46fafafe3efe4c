// Package weeks computes the rolling window of ISO week labels synced by weeklabel.
//
// The package includes:
// - WeekColor, a deterministic HSL gradient from week number to hex color
// - RandomColor, a non-repeatable alternative color strategy
// - Generate, which folds a pure (year, week) step function into a label sequence
package weeks
