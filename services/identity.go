package services

import (
	"errors"
	"strings"
	"unicode"

	"filerepo/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Identity is the authenticated caller as resolved by the auth middleware.
type Identity struct {
	UserID      uint
	DisplayName string
	Role        string
}

func (i Identity) IsPrincipal() bool {
	return i.Role == models.RolePrincipal
}

const maxNameLength = 255

var errControlChars = validation.NewError("validation_name_control", "must not contain control characters")

var nameRules = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, maxNameLength),
	validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.IndexFunc(s, unicode.IsControl) >= 0 {
			return errControlChars
		}
		return nil
	}),
}

// normalizeName trims the display name and checks it can be stored as entered.
func normalizeName(field string, name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, nameRules...); err != nil {
		return "", errValidation(field+" "+err.Error(), err)
	}
	return name, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
