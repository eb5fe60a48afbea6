package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate decodes the JSON body into dst and validates it. On
// failure it writes the 400 response and returns the error.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidRequest)
		return err
	}
	if err := validate.Struct(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   ErrMsgValidationFailed,
			Details: formatValidationError(err),
		})
		return err
	}
	return nil
}

// formatValidationError maps field names (as they appear in JSON) to a short
// explanation.
func formatValidationError(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"error": "Invalid request format"}
	}

	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = "This field is required"
		case "latitude":
			out[field] = "Must be between -90 and 90"
		case "longitude":
			out[field] = "Must be between -180 and 180"
		case "gte":
			out[field] = "Must be at least " + e.Param()
		case "lte":
			out[field] = "Must be at most " + e.Param()
		case "max":
			out[field] = fmt.Sprintf("Must be at most %s characters", e.Param())
		default:
			out[field] = "Invalid value"
		}
	}
	return out
}

// queryLimit parses the "limit" query parameter, defaulting to def and
// capping at maxLimit.
func queryLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(ErrMsgInvalidLimit)
	}
	return min(n, maxLimit), nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf(ErrMsgInvalidBool, name)
	}
	return b, nil
}
