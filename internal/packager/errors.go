package packager

import "fmt"

// MissingInputError aborts a run before anything is written.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("required input not found: %s", e.Path)
}

// MarkerNotFoundError reports a template that no longer contains the tag an
// asset was supposed to replace.
type MarkerNotFoundError struct {
	Marker string
	Asset  string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("template has no %s for %s", e.Marker, e.Asset)
}
