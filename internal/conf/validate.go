// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/dusnap/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateSnapshotSettings(&settings.Snapshot); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}

func validateSnapshotSettings(s *SnapshotSettings) error {
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("snapshot command must not be empty")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("snapshot timeout must be positive, got %v", s.Timeout)
	}
	if s.QuietPeriod <= 0 {
		return fmt.Errorf("snapshot quiet period must be positive, got %v", s.QuietPeriod)
	}
	if s.DirectoryPacing < 0 {
		return fmt.Errorf("snapshot directory pacing must not be negative, got %v", s.DirectoryPacing)
	}
	return nil
}

func validateWebServerSettings(ws *WebServerSettings) error {
	if !ws.Enabled {
		return nil
	}
	if ws.Port < 1 || ws.Port > 65535 {
		return fmt.Errorf("webserver port must be between 1 and 65535, got %d", ws.Port)
	}
	return nil
}
