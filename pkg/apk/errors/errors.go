// Package errors defines the sentinel errors shared by the apkext pipelines.
// Concrete errors wrap one of these so callers can branch with errors.Is.
package errors

import "errors"

var (
	// Input errors 📥
	ErrValidation     = errors.New("❌ invalid input")
	ErrMarkerNotFound = errors.New("❌ apktool.yml not found")
	ErrDexNotFound    = errors.New("❌ DEX file not found")

	// Tool errors 🔧
	ErrToolFailed      = errors.New("❌ tool failed")
	ErrSpawn           = errors.New("❌ failed to start tool")
	ErrRuntimeNotFound = errors.New("❌ Java runtime not found")

	// Cache errors 📦
	ErrProvision   = errors.New("❌ asset provisioning failed")
	ErrLockTimeout = errors.New("❌ timeout waiting for asset cache extraction")
)

// ValidationError reports a rejected pipeline input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Value
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
