package entity

import (
	"fmt"
	"regexp"
)

// serviceIDPattern matches a single DNS label, the shape of the app ids that
// are substituted into the generation service URL.
var serviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,63}$`)

// ValidateServiceID rejects ids that could change the host or path of the
// service URL they are placed in.
func ValidateServiceID(id string) error {
	if !serviceIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidServiceID, id)
	}
	return nil
}

// UserConfig holds per-user overrides of the generation services.
type UserConfig struct {
	UserID              string `json:"user_id" bson:"user_id"`
	TextToImageService  string `json:"text_to_image_service,omitempty" bson:"text_to_image_service,omitempty"`
	ImageToModelService string `json:"image_to_3d_service,omitempty" bson:"image_to_3d_service,omitempty"`
}

// ServiceIDs is the resolved pair of generation services for one run.
type ServiceIDs struct {
	TextToImage           string
	TextToImageSecondary  string
	ImageToModel          string
	ImageToModelSecondary string
}

// Apply overrides the primary services with the ones set in the user config.
func (s ServiceIDs) Apply(cfg *UserConfig) ServiceIDs {
	if cfg == nil {
		return s
	}
	if cfg.TextToImageService != "" {
		s.TextToImage = cfg.TextToImageService
	}
	if cfg.ImageToModelService != "" {
		s.ImageToModel = cfg.ImageToModelService
	}
	return s
}

// Validate checks the overrides that are set. Empty fields fall back to the
// service defaults.
func (c *UserConfig) Validate() error {
	if c.UserID == "" {
		return ErrEmptyUserID
	}
	for _, id := range []string{c.TextToImageService, c.ImageToModelService} {
		if id == "" {
			continue
		}
		if err := ValidateServiceID(id); err != nil {
			return err
		}
	}
	return nil
}
