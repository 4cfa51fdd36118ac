// Package services implements the business logic between the HTTP handlers
// and the dataset, report, chart and export packages.
//
// ReportService reads the dataset through a memoizing cache, resolves the
// caller's hospital selection and builds reports, chart images and exports.
// Errors are returned as sentinel or AppError values from internal/errors so
// the HTTP layer can map them to problem responses:
//
//	- ErrDatasetUnavailable when the file cannot be read
//	- a PARSING AppError when the file lacks required columns
//	- ErrTooManyHospitals, ErrUnknownChart, ErrUnsupportedFormat for bad input
//	- ErrEmptySelection when a gender chart is requested for no hospitals
//
// HealthService reports liveness and dataset readiness.
package services
