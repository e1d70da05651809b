package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	detailInvalidPage = "Invalid page."
	detailNotFound    = "Not found."
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidCredentials = errors.New("no active account found with the given credentials")
	errInvalidToken       = errors.New("token is invalid or expired")
	errMissingCredentials = errors.New("authentication credentials were not provided")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"detail": err.Message})
}

// abortWithFieldErrors responds 400 with {"<field>": ["message", ...]}.
func abortWithFieldErrors(c *gin.Context, fields map[string][]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, fields)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

// bindErrorFields turns a binding failure into field errors. The second
// result is false when err is not attributable to a field, e.g. malformed
// JSON.
func bindErrorFields(err error) (map[string][]string, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], validationMessage(fe))
		}
		return fields, true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string][]string{
			typeErr.Field: {typeMessage(typeErr.Type)},
		}, true
	}
	return nil, false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	default:
		return "invalid value"
	}
}

func typeMessage(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "must be a valid boolean"
	case reflect.String:
		return "not a valid string"
	default:
		return "invalid value"
	}
}

var registerTagNameOnce sync.Once

// useJSONFieldNames makes validation errors report the json name of a
// field instead of its Go name.
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name, _, _ := strings.Cut(field.Tag.Get(key), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}
