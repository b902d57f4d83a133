// Package http provides the JSON API over the planner.
//
// This file implements request decoding and validation. Bodies are decoded
// strictly and checked with struct tags, so handlers only see well-formed
// input.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"budgetplan/internal/core"
)

const maxBodyBytes = 64 << 10

var (
	validate  = validator.New()
	nonBlank  = regexp.MustCompile(`\S`)
	dateParse = "2006-01-02"
)

func init() {
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})
}

// RequestError is a client error with the status it maps to.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Amount accepts a JSON number or string. Anything unparsable or negative
// becomes zero, never an error.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			a.Decimal = decimal.Zero
			return nil
		}
		a.Decimal = core.ParseAmount(s)
		return nil
	}
	a.Decimal = core.ParseAmount(string(b))
	return nil
}

type itemRef struct {
	CategoryID    string `json:"categoryId" validate:"required,notblank"`
	SubcategoryID string `json:"subcategoryId" validate:"required,notblank"`
}

type updateAmountRequest struct {
	itemRef
	Amount Amount `json:"amount"`
}

type updateNameRequest struct {
	itemRef
	Name string `json:"name" validate:"max=120"`
}

type updateClassificationRequest struct {
	itemRef
	Classification string `json:"classification" validate:"required,oneof=need want"`
}

type setDueDateRequest struct {
	itemRef
	DueDate *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

type addItemRequest struct {
	CategoryID     string `json:"categoryId" validate:"required,notblank"`
	Name           string `json:"name" validate:"max=120"`
	Classification string `json:"classification" validate:"omitempty,oneof=need want"`
}

type moveItemRequest struct {
	itemRef
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// decodeJSON strictly decodes the body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *RequestError {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &RequestError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	if err := validateStruct(dst); err != nil {
		return &RequestError{Status: http.StatusUnprocessableEntity, Message: err.Error()}
	}
	return nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldErrorToString(e))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", e.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}

// parseMonthQuery reads year and month from the query, defaulting each to
// today's.
func parseMonthQuery(q url.Values, today core.MonthKey) (core.MonthKey, *RequestError) {
	year, month := today.Year, int(today.Month)
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.MonthKey{}, badRequest("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			mm, nameErr := core.ParseMonthName(v)
			if nameErr != nil {
				return core.MonthKey{}, badRequest("invalid month %q", v)
			}
			m = int(mm)
		}
		month = m
	}
	key, err := core.NewMonthKey(year, month)
	if err != nil {
		return core.MonthKey{}, badRequest("%v", err)
	}
	return key, nil
}

// parseYearQuery reads the year parameter, defaulting to today's.
func parseYearQuery(q url.Values, today core.MonthKey) (int, *RequestError) {
	v := strings.TrimSpace(q.Get("year"))
	if v == "" {
		return today.Year, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid year %q", v)
	}
	return y, nil
}

// sanitizeInput trims s and drops control characters. Item names are
// single-line, so newlines go too.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s))
}

func parseDueDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := time.Parse(dateParse, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &d, nil
}
