package binder

import (
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/assert"
)

type mockFieldError struct {
	tag   string
	field string
	param string
	kind  reflect.Kind
}

func (e *mockFieldError) Error() string           { return "Mock Field Error" }
func (e *mockFieldError) Tag() string             { return e.tag }
func (e *mockFieldError) ActualTag() string       { return e.tag }
func (e *mockFieldError) Namespace() string       { return "" }
func (e *mockFieldError) StructNamespace() string { return "" }
func (e *mockFieldError) Field() string           { return e.field }
func (e *mockFieldError) StructField() string     { return "" }
func (e *mockFieldError) Value() interface{}      { return "" }
func (e *mockFieldError) Param() string           { return e.param }
func (e *mockFieldError) Kind() reflect.Kind {
	if e.kind == 0 {
		return reflect.String
	}
	return e.kind
}
func (e *mockFieldError) Type() reflect.Type               { return reflect.TypeOf("") }
func (e *mockFieldError) Translate(_ ut.Translator) string { return "" }

func TestFormatValidationError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tag   string
		param string
		kind  reflect.Kind
		msg   string
	}{
		{email, "", 0, `"genre_shelf" is not a valid email`},
		{gt, "0", 0, `"genre_shelf" must be greater than 0`},
		{lte, "5", reflect.Int, `"genre_shelf" must be less than or equal to 5`},
		{mx, "20", reflect.String, `"genre_shelf" length must be less than or equal to 20 characters`},
		{mx, "1", reflect.String, `"genre_shelf" length must be less than or equal to 1 character`},
		{mn, "1", reflect.String, `"genre_shelf" length must be greater than or equal to 1 character`},
		{mx, "5", reflect.Int, `"genre_shelf" must be less than or equal to 5`},
		{mn, "0", reflect.Float64, `"genre_shelf" must be greater than or equal to 0`},
		{mx, "5", reflect.Slice, `"genre_shelf" length must be less than or equal to 5 elements`},
		{mn, "1", reflect.Slice, `"genre_shelf" length must be greater than or equal to 1 element`},
		{ne, "20", 0, `"genre_shelf" can't be "20"`},
		{oneof, "id isbn", 0, `"genre_shelf" must be one of the following: "id", "isbn"`},
		{required, "", 0, `"genre_shelf" is required`},
		{isbn, "", 0, `"genre_shelf" must be a 10 or 13 character ISBN`},
		{httpURL, "", 0, `"genre_shelf" must be an absolute http or https URL`},
		{"foo", "", 0, `"genre_shelf" failed the "foo" validation`},
	}

	for _, tt := range cases {
		err := mockFieldError{tag: tt.tag, field: "genre_shelf", param: tt.param, kind: tt.kind}
		assert.Equal(t, tt.msg, formatValidationError(&err))
	}
}
