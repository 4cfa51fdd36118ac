// Package exporter writes reports to files a spreadsheet user can open.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing with headers and a UTF-8 BOM for Excel
// compatibility, used for the flat doctor leaderboard export.
//
// Workbook: An xlsx workbook with a summary sheet, one leaderboard sheet per
// selected hospital, the monthly trend table and the gender counts.
//
// Example usage:
//
//	// Write the leaderboard of every selected hospital as one CSV
//	err := exporter.WriteLeaderboardCSV(w, rep, true)
//
//	// Write the full workbook
//	err = exporter.WriteWorkbook(w, rep)
package exporter
