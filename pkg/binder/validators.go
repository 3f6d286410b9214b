package binder

import (
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/littlelibrary/server/pkg/identifiers"
)

// isbnValidator accepts the empty string, or anything that canonicalizes to
// 10 or 13 characters. Checksums are not verified.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	n := len(identifiers.Canonicalize(value))
	return n == 10 || n == 13
}

// httpURLValidator accepts the empty string or an absolute http(s) URL.
func httpURLValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
