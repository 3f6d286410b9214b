package binder

import (
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/segmentio/encoding/json"
)

var unknownFieldsRE = regexp.MustCompile(`json: unknown field "(.*)"`)

// Binder implements echo.Binder. It decodes the request into a struct, runs
// mold modifiers over it, fills in defaults, and validates it.
type Binder struct {
	queryDecoder *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

// New initializes a new Binder with the custom validations registered.
func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})
	if err := validate.RegisterValidation(isbn, isbnValidator); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := validate.RegisterValidation(httpURL, httpURLValidator); err != nil {
		return nil, errors.WithStack(err)
	}

	return &Binder{queryDecoder, modifiers.New(), validate}, nil
}

// Bind binds, modifies, and validates payloads against the given struct.
// Requests without a body are bound from the query string, which is only
// allowed for GET and DELETE unless the route sets "allow_empty_body".
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	if req.ContentLength != 0 && req.Body != nil && req.Body != http.NoBody {
		if err := b.decodeJSON(i, c); err != nil {
			return err
		}
	} else {
		allowEmptyBody, _ := c.Get("allow_empty_body").(bool)
		if req.Method != http.MethodGet && req.Method != http.MethodDelete && !allowEmptyBody {
			return errcodes.EmptyRequestBody()
		}
		if err := b.decodeQuery(i, c.QueryParams()); err != nil {
			return err
		}
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return errors.WithStack(err)
		}
		return errcodes.ValidationError(formatValidationError(errs[0]))
	}
	return nil
}

func (b *Binder) decodeJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return errcodes.UnsupportedMediaType()
	}
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	if allowUnknown, _ := c.Get("allow_unknown_fields").(bool); !allowUnknown {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if matches := unknownFieldsRE.FindStringSubmatch(err.Error()); len(matches) > 1 {
		return errcodes.UnknownParameter(matches[1])
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}

	logger.FromEchoContext(c).Err(err).Warn("undecodable json payload")
	return errcodes.MalformedPayload()
}

func (b *Binder) decodeQuery(i interface{}, params url.Values) error {
	err := b.queryDecoder.Decode(i, params)
	if err == nil {
		return nil
	}

	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return errors.WithStack(err)
	}
	for _, e := range multi {
		var conv schema.ConversionError
		if errors.As(e, &conv) {
			return errcodes.ValidationTypeError(formatSchemaConversionError(conv))
		}
		var unknown schema.UnknownKeyError
		if errors.As(e, &unknown) {
			return errcodes.UnknownParameter(unknown.Key)
		}
		return errors.WithStack(e)
	}
	return errors.WithStack(err)
}

// AllowEmptyBody lets a non-GET route be called without a body. Its payload
// is then bound from the query string.
func AllowEmptyBody(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set("allow_empty_body", true)
		return next(c)
	}
}
