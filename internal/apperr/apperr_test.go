package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeValidation, 400},
		{CodeNotFound, 404},
		{CodeStore, 500},
		{CodeSchema, 500},
		{CodeConfiguration, 500},
		{CodeDispatch, 500},
	}

	for _, tc := range cases {
		err := New(tc.code, "boom")
		if got := err.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Store(cause, "list todos")

	want := "list todos: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find wrapped cause")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("todo %s not found", "abc"))

	if !IsCode(err, CodeNotFound) {
		t.Error("IsCode should unwrap to find NOT_FOUND")
	}
	if IsCode(err, CodeValidation) {
		t.Error("IsCode matched wrong code")
	}
	if IsCode(errors.New("plain"), CodeNotFound) {
		t.Error("IsCode matched a plain error")
	}
}

func TestHTTPStatusPlainError(t *testing.T) {
	if got := HTTPStatus(errors.New("plain")); got != 500 {
		t.Errorf("HTTPStatus(plain) = %d, want 500", got)
	}
	if got := HTTPStatus(Validation("title is required")); got != 400 {
		t.Errorf("HTTPStatus(validation) = %d, want 400", got)
	}
}
