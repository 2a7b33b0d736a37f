package entity

import "errors"

// Messages of the generation errors are shown to users verbatim.
var (
	ErrImageGeneration = errors.New("Failed to generate image from text")
	ErrModelGeneration = errors.New("Failed to generate 3D model from image")

	ErrEmptyPrompt      = errors.New("prompt is required")
	ErrEmptyUserID      = errors.New("user id is required")
	ErrInvalidServiceID = errors.New("invalid service id")
	ErrNotFound         = errors.New("not found")
)
