package renderer

import "errors"

var (
	ErrNoScene          = errors.New("renderer: no scene attached")
	ErrCameraNotDefined = errors.New("renderer: no camera defined")
	ErrClosed           = errors.New("renderer: renderer closed")
	ErrNotStarted       = errors.New("renderer: render not started")
	ErrInterrupted      = errors.New("renderer: interrupted while rendering")
)
