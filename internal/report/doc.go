// Package report turns a loaded dataset and a hospital selection into a
// structured domain.Report that any rendering backend can consume.
//
// # Components
//
//  1. Selection: resolves the caller's hospital list, falling back to the
//     first hospitals in discovery order when none was given
//  2. Metrics and leaderboard: per-hospital case count, averages and the
//     per-doctor ranking
//  3. Trend: per-hospital monthly sums of Difference
//  4. Gender: per-hospital counts of each Sex value
//
// # Usage
//
//	builder := report.NewBuilder(logger, report.BuilderConfig{})
//	hospitals := report.Resolve(ds, report.Selection{}, 2)
//	rep := builder.Build(ds, hospitals)
//
// # Missing values
//
// Absent Difference and Service Duration values are skipped by averages and
// sums. An average over a subset with no present values is absent, never NaN.
// Rows whose month did not parse are collected in a trailing trend point with
// a nil Month.
package report
