package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the reader and registry contracts.
// Typed errors below match these via errors.Is.
var (
	// ErrConstruction marks a reader that could not be built.
	ErrConstruction = errors.New("reader construction failed")
	// ErrMetadata marks required dataset metadata that could not be discovered.
	ErrMetadata = errors.New("missing dataset metadata")
	// ErrVariableNotAvailable marks a sample request for an unmapped variable.
	ErrVariableNotAvailable = errors.New("variable not available")
	// ErrTimeOutOfRange marks a requested time outside the reader's time axis.
	ErrTimeOutOfRange = errors.New("outside time domain")
	// ErrSpaceOutOfRange marks a requested position outside the reader's grid.
	ErrSpaceOutOfRange = errors.New("outside spatial domain")
	// ErrMissingVariables marks variables that no attached reader can supply.
	ErrMissingVariables = errors.New("missing variables")
	// ErrInvalidReader is returned when attaching something that is not a usable reader.
	ErrInvalidReader = errors.New("invalid reader")
	// ErrInvalidArgument marks malformed query arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)

// MetadataError reports discoverable metadata that is absent from a dataset.
type MetadataError struct {
	What string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("did not find %s in dataset", e.What)
}

// Is reports whether target is ErrMetadata or ErrConstruction.
func (e *MetadataError) Is(target error) bool {
	return target == ErrMetadata || target == ErrConstruction
}

// VariableNotAvailableError names a variable the reader does not map.
type VariableNotAvailableError struct {
	Name string
}

func (e *VariableNotAvailableError) Error() string {
	return "variable not available: " + e.Name
}

// Is reports whether target is ErrVariableNotAvailable.
func (e *VariableNotAvailableError) Is(target error) bool {
	return target == ErrVariableNotAvailable
}

// MissingVariablesError names the requested variables that could not be supplied.
// Names are sorted.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("missing variables: [%s]", strings.Join(e.Names, ", "))
}

// Is reports whether target is ErrMissingVariables.
func (e *MissingVariablesError) Is(target error) bool {
	return target == ErrMissingVariables
}
