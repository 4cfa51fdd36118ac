// Package shared holds helpers used by more than one package and owned by none.
//
// The testutil subpackage provides a capturing slog handler and case-file
// fixtures for tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
package shared
