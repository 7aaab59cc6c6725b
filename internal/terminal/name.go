package terminal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidName is returned for display names the room will not accept.
var ErrInvalidName = errors.New("invalid display name")

var validate = validator.New()

type registration struct {
	Name string `validate:"required,min=2,max=20"`
}

// ValidateName trims name and checks it is between 2 and 20 characters long.
// It returns the trimmed name.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := validate.Struct(registration{Name: trimmed}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return "", fmt.Errorf("%w: %s", ErrInvalidName, describe(verrs[0]))
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return trimmed, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "please enter a name"
	case "min":
		return "the name must be at least 2 characters"
	case "max":
		return "the name must be at most 20 characters"
	default:
		return fe.Error()
	}
}
