package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}

// clampPagination bounds the page size taken from the query string.
func clampPagination(page pagination.Pagination) pagination.Pagination {
	if page.PageSize <= 0 {
		page.PageSize = defaultPageSize
	}
	if page.PageSize > maxPageSize {
		page.PageSize = maxPageSize
	}
	page.PageToken = strings.TrimSpace(page.PageToken)
	return page
}

// bindError converts binding failures into field level validation errors.
func bindError(err error) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range vErrs {
		field := toSnake(fe.Field())
		code := "invalid_" + field
		message := "invalid value"
		if fe.Tag() == "required" {
			code = "required"
			message = "is required"
		}
		out.Errors = append(out.Errors, ValidationError{Field: field, Code: code, Message: message})
	}
	return out
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
