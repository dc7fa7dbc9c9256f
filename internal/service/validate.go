package service

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/matchpost/matchpost/internal/model"
)

// newValidator builds a validator that reports JSON field names and
// understands the skill_level tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("skill_level", func(fl validator.FieldLevel) bool {
		return model.SkillLevel(fl.Field().String()).IsValid()
	})

	return v
}

// checkStruct runs v over input and converts failures into a validation Error.
func checkStruct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationError("invalid input", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), describe(fe)))
	}
	return validationError(strings.Join(msgs, "; "), err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "skill_level":
		return fmt.Sprintf("must be one of %v", model.SkillLevels)
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// textCleaner strips markup from user-supplied free text so stored values
// are plain text.
type textCleaner struct {
	policy *bluemonday.Policy
}

func newTextCleaner() *textCleaner {
	return &textCleaner{policy: bluemonday.StrictPolicy()}
}

// Clean removes every tag, decodes entities the policy escaped and trims
// surrounding whitespace.
func (c *textCleaner) Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}

// CleanOptional is Clean for optional values. Blank input becomes nil.
func (c *textCleaner) CleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := c.Clean(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// cleanField cleans a patch field while keeping its omitted/null state.
func (c *textCleaner) cleanField(f model.Field[string]) model.Field[string] {
	if v, ok := f.Value(); ok {
		return model.Set(c.Clean(v))
	}
	return f
}

// cleanNullableField is cleanField for clearable fields: a blank value
// becomes an explicit null.
func (c *textCleaner) cleanNullableField(f model.Field[string]) model.Field[string] {
	f = c.cleanField(f)
	if v, ok := f.Value(); ok && v == "" {
		return model.Null[string]()
	}
	return f
}
