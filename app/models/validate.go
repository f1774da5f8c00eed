package models

import (
	"reflect"
	"regexp"
	"strings"

	"rightsnet/app/countries"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so errors match the API payloads
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		return countries.Known(fl.Field().String())
	})
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

const maxSlugLength = 90

// Slugify turns a display name into a lowercase, dash separated ASCII slug.
// Names in other scripts are transliterated.
func Slugify(name string) string {
	s := slug.Make(name)
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-_")
	}
	return s
}

// NormalizeTags lowercases tags, strips a leading '#', and drops blanks and
// duplicates while keeping the first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
