package domain

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors wrap one of these so callers can classify
// them with errors.Is.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrFarmerNotFound             = fmt.Errorf("%w: farmer not found", ErrBadRequest)
	ErrCropDefinitionNotFound     = fmt.Errorf("%w: crop definition not found", ErrBadRequest)
	ErrCropDefinitionInactive     = fmt.Errorf("%w: crop definition is not active", ErrBadRequest)
	ErrStorageProfileMissing      = fmt.Errorf("%w: storage profile missing for this crop", ErrBadRequest)
	ErrUnsupportedStageTransition = fmt.Errorf("%w: unsupported stage transition", ErrBadRequest)
	ErrInvalidStartMode           = fmt.Errorf("%w: invalid start mode", ErrBadRequest)
	ErrMissingIdentifier          = fmt.Errorf("%w: missing identifier", ErrBadRequest)

	ErrCropCycleNotFound    = fmt.Errorf("%w: crop not found for this farmer", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification not found", ErrNotFound)
)
