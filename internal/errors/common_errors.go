package errors

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
)

// ErrorType classifies a failure inside the report pipeline. The HTTP
// layer turns it into a status and problem type; the CLI only prints it.
type ErrorType string

const (
	ErrTypeDataset    ErrorType = "DATASET"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeRender     ErrorType = "RENDER"
	ErrTypeExport     ErrorType = "EXPORT"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
)

type problemShape struct {
	status      int
	problemType string
	title       string
	// parsing failures show the cause so users can fix the file
	detailCause bool
}

var problemShapes = map[ErrorType]problemShape{
	ErrTypeDataset:    {http.StatusServiceUnavailable, TypeDatasetUnavailable, "Dataset Unavailable", false},
	ErrTypeParsing:    {http.StatusUnprocessableEntity, TypeDatasetInvalid, "Dataset Invalid", true},
	ErrTypeValidation: {http.StatusBadRequest, TypeValidation, "Validation Failed", false},
	ErrTypeNotFound:   {http.StatusNotFound, TypeNotFound, "Resource Not Found", false},
	ErrTypeRender:     {http.StatusInternalServerError, TypeRenderFailed, "Render Failed", false},
	ErrTypeExport:     {http.StatusInternalServerError, TypeRenderFailed, "Render Failed", false},
}

func (t ErrorType) shape() problemShape {
	if s, ok := problemShapes[t]; ok {
		return s
	}
	return problemShape{http.StatusInternalServerError, TypeInternal, "Internal Server Error", false}
}

// HTTPStatus is the status code an error of this type is answered with.
func (t ErrorType) HTTPStatus() int { return t.shape().status }

// AppError is a classified failure with optional key/value context such
// as the dataset path or the requested chart.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause, Context: map[string]interface{}{}}
}

func NewDatasetError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataset, message, cause)
}

func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

func NewRenderError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRender, message, cause)
}

func NewExportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeExport, message, cause)
}

func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext records key=value on e and returns e for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

// LogValue renders e as a group so handlers log the type and context as
// separate fields instead of one flattened string.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", string(e.Type)),
		slog.String("message", e.Message),
	}
	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Context[k]))
	}
	return slog.GroupValue(attrs...)
}

// Problem converts e to an RFC 7807 response for the request path.
func (e *AppError) Problem(path string) *ProblemDetails {
	shape := e.Type.shape()
	detail := e.Message
	if shape.detailCause {
		detail = e.Error()
	}
	problem := NewProblemDetails(shape.status, shape.problemType, shape.title, detail, path).
		WithExtension("error_type", string(e.Type))
	if len(e.Context) > 0 {
		problem.WithExtension("context", e.Context)
	}
	return problem
}
