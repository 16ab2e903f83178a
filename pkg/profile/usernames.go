package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mchmarny/devscore/pkg/platform"
)

// ErrInvalidRequest is returned when the usernames fail validation.
var ErrInvalidRequest = errors.New("invalid request")

// Usernames identifies one developer on every platform.
type Usernames struct {
	GitHub     string `json:"github" yaml:"github" validate:"required,max=39"`
	LeetCode   string `json:"leetcode" yaml:"leetcode" validate:"required,max=64"`
	HackerRank string `json:"hackerrank" yaml:"hackerrank" validate:"required,max=64"`
}

// Trim returns a copy without surrounding whitespace.
func (u Usernames) Trim() Usernames {
	return Usernames{
		GitHub:     strings.TrimSpace(u.GitHub),
		LeetCode:   strings.TrimSpace(u.LeetCode),
		HackerRank: strings.TrimSpace(u.HackerRank),
	}
}

// For returns the username on p.
func (u Usernames) For(p platform.Platform) string {
	switch p {
	case platform.GitHub:
		return u.GitHub
	case platform.LeetCode:
		return u.LeetCode
	case platform.HackerRank:
		return u.HackerRank
	default:
		return ""
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate reports every violation in a single ErrInvalidRequest.
func validate(v *validator.Validate, u Usernames) error {
	err := v.Struct(u)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s username is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s username must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s username is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}
