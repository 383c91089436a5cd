package schema

import (
	"errors"
	"testing"
)

func TestValidationError_Add(t *testing.T) {
	e := NewValidationError("")

	if e.Message != DefaultValidationMessage {
		t.Errorf("Message = %q, want %q", e.Message, DefaultValidationMessage)
	}
	if !e.Empty() {
		t.Error("new ValidationError should be empty")
	}

	e.Add("username", "Part of the unique key")
	e.Add("email", "must be a string")
	e.Add("username", "too short")

	if e.Empty() {
		t.Error("ValidationError should not be empty after Add")
	}
	if got := e.Info["username"]; got != "Part of the unique key; too short" {
		t.Errorf("Info[username] = %q, want joined problems", got)
	}

	want := "Validation failed: email: must be a string; username: Part of the unique key; too short"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError_SameProblemNotRepeated(t *testing.T) {
	e := NewValidationError("x")
	e.Add("a", "bad")
	e.Add("a", "bad")
	if e.Info["a"] != "bad" {
		t.Errorf("Info[a] = %q, want %q", e.Info["a"], "bad")
	}
}

func TestValidationError_OrNil(t *testing.T) {
	var nilErr *ValidationError
	if !nilErr.Empty() {
		t.Error("nil ValidationError should be empty")
	}

	e := NewValidationError("x")
	if e.OrNil() != nil {
		t.Error("OrNil() on empty error should be nil")
	}

	e.Add("f", "problem")
	err := e.OrNil()
	if err == nil {
		t.Fatal("OrNil() should return the error")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Info["f"] != "problem" {
		t.Errorf("errors.As failed or lost info: %v", err)
	}
}

func TestValidationError_Merge(t *testing.T) {
	a := NewValidationError("a")
	a.Add("x", "1")
	b := NewValidationError("b")
	b.Add("y", "2")

	a.Merge(b)
	a.Merge(nil)

	if len(a.Info) != 2 || a.Info["y"] != "2" {
		t.Errorf("Merge result = %v", a.Info)
	}
}
