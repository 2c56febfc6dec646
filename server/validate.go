package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Boundary validation works on the raw decoded body so that an absent
// field can be told apart from an explicit null, which matters for
// partial updates of nullable columns.

type fieldErrors map[string]string

// decodeObject reads the request body as a JSON object.
func decodeObject(c echo.Context) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

func asString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("must be a string")
	}
	return s, nil
}

func asInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	return n, nil
}

func asBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("must be a boolean")
	}
	return b, nil
}

// requireString records an error when the key is missing, null, empty,
// or not a string, and returns its value otherwise.
func requireString(obj map[string]json.RawMessage, key string, errs fieldErrors) string {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		errs[key] = "required"
		return ""
	}
	s, err := asString(raw)
	if err != nil {
		errs[key] = err.Error()
		return ""
	}
	if s == "" {
		errs[key] = "required"
		return ""
	}
	return s
}

func requireInt(obj map[string]json.RawMessage, key string, errs fieldErrors) int {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		errs[key] = "required"
		return 0
	}
	n, err := asInt(raw)
	if err != nil {
		errs[key] = err.Error()
		return 0
	}
	return n
}

func requireBool(obj map[string]json.RawMessage, key string, errs fieldErrors) bool {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		errs[key] = "required"
		return false
	}
	b, err := asBool(raw)
	if err != nil {
		errs[key] = err.Error()
		return false
	}
	return b
}

// optionalString returns the value when present and non-null.
func optionalString(obj map[string]json.RawMessage, key string, errs fieldErrors) *string {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	s, err := asString(raw)
	if err != nil {
		errs[key] = err.Error()
		return nil
	}
	return &s
}

// parseDate accepts the timestamp shapes offline clients send.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("must be a date")
}

// optionalDate returns the parsed value when present and non-null.
func optionalDate(obj map[string]json.RawMessage, key string, errs fieldErrors) *time.Time {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	s, err := asString(raw)
	if err != nil {
		errs[key] = err.Error()
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		errs[key] = err.Error()
		return nil
	}
	return &t
}

func validationFailed(c echo.Context, errs fieldErrors) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": errs,
	})
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
}
