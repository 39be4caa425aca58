// Package errors provides centralized error handling with category and
// component metadata for the attendance pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation      ErrorCategory = "validation"
	CategoryModelState      ErrorCategory = "model-state"
	CategoryModelLoad       ErrorCategory = "model-loading"
	CategoryModelSave       ErrorCategory = "model-saving"
	CategoryLabelMap        ErrorCategory = "label-map"
	CategoryFileIO          ErrorCategory = "file-io"
	CategoryCamera          ErrorCategory = "camera"
	CategoryCascade         ErrorCategory = "cascade-resource"
	CategoryImageProcessing ErrorCategory = "image-processing"
	CategoryTraining        ErrorCategory = "training"
	CategoryDatabase        ErrorCategory = "database"
	CategoryConfiguration   ErrorCategory = "configuration"
	CategoryNotification    ErrorCategory = "notification"
	CategoryGeneric         ErrorCategory = "generic"
)

// Sentinel errors for errors.Is checks across package boundaries.
var (
	// ErrNotTrained is returned when predict, update or save is called on
	// a model that has not completed a successful train or load.
	ErrNotTrained = stderrors.New("model is not trained")

	// ErrCameraBusy is returned when a camera open is attempted while
	// another component holds the device.
	ErrCameraBusy = stderrors.New("camera device is already in use")

	// ErrInsufficientIdentities is returned when a training run yields
	// fewer than two distinct labels.
	ErrInsufficientIdentities = stderrors.New("training requires at least two distinct identities")
)

// EnhancedError wraps an error with category, component and context data.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches either the wrapped error chain or another EnhancedError of
// the same category.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetCategory returns the error category as a string.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	out := make(map[string]any, len(ee.Context))
	maps.Copy(out, ee.Context)
	return out
}

// ErrorBuilder provides a fluent interface for constructing enhanced errors.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new ErrorBuilder for the given error. If err is already
// an EnhancedError its metadata seeds the builder.
func New(err error) *ErrorBuilder {
	b := &ErrorBuilder{err: err, category: CategoryGeneric}
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		b.component = ee.Component
		b.category = ee.Category
		if len(ee.Context) > 0 {
			b.context = make(map[string]any, len(ee.Context))
			maps.Copy(b.context, ee.Context)
		}
	}
	return b
}

// Newf creates a new ErrorBuilder from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name.
func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

// Category sets the error category.
func (b *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	b.category = category
	return b
}

// Context adds a key-value pair to the error context.
func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build constructs the EnhancedError.
func (b *ErrorBuilder) Build() error {
	if b.err == nil {
		return nil
	}
	return &EnhancedError{
		Err:       b.err,
		Component: b.component,
		Category:  b.category,
		Context:   b.context,
		Timestamp: time.Now(),
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// NewStd returns a plain error without enhancement, for sentinel values.
func NewStd(text string) error {
	return stderrors.New(text)
}
