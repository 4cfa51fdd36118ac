// Package http implements the HTTP handlers of the case dashboard. Handlers
// stay thin: they parse and validate the hospital selection, call the report
// service and format the response.
//
// # Selection
//
// Every report endpoint reads the selection from the repeated "hospital"
// query parameter:
//
//	/api/report                          default selection (first two hospitals)
//	/api/report?hospital=A&hospital=B    hospitals A and B, in that order
//	/api/report?hospital=                explicit empty selection
//
// # Error Handling
//
// Service errors are rendered as RFC 7807 Problem Details by the shared
// ErrorHandler:
//
//	{
//	    "type": "/errors/report/empty-selection",
//	    "title": "Empty Selection",
//	    "status": 422,
//	    "detail": "Select at least one hospital to render this view",
//	    "instance": "/api/report/charts/gender.png",
//	    "trace_id": "..."
//	}
//
// The HTML dashboard renders the same problem inline with its status code.
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// ReportServiceInterface.
package http
