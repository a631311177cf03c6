package utils

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

// BindRequest binds path, query and body parameters into T and validates the result.
// Both failures are reported as 400s.
func BindRequest[T any](c echo.Context) (T, error) {
	var v T

	if err := c.Bind(&v); err != nil {
		return v, httperror.WrapError(http.StatusBadRequest, err)
	}

	if v, err := Validate(v); err != nil {
		return v, httperror.WrapError(http.StatusBadRequest, err)
	}

	return v, nil
}

// PathID returns the named path parameter after checking it is a uuid.
func PathID(c echo.Context, name string) (string, error) {
	id := c.Param(name)
	if err := ValidateValue(id, "required,uuid"); err != nil {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
