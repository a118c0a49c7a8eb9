package detection

import (
	"errors"
	"fmt"
)

// ErrSheetNotFound matches every *SheetNotFoundError.
var ErrSheetNotFound = errors.New("answer sheet not found")

// SheetNotFoundError reports that no quadrilateral large enough to be the
// sheet frame was found in the photo.
type SheetNotFoundError struct {
	// Contours is the number of external contours examined.
	Contours int
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("%v (%d candidate contours): make sure all four corners of the sheet are visible and the lighting is even",
		ErrSheetNotFound, e.Contours)
}

func (e *SheetNotFoundError) Unwrap() error { return ErrSheetNotFound }

// IsSheetNotFound reports whether err is, or wraps, a sheet-not-found error.
func IsSheetNotFound(err error) bool {
	return errors.Is(err, ErrSheetNotFound)
}
