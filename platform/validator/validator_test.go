package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Status string `form:"status" validate:"omitempty,oneof=open closed"`
	Hidden string `json:"-" validate:"max=1"`
}

func TestFieldErrorsUsesTagNames(t *testing.T) {
	v := New()

	got := FieldErrors(v.Struct(sample{Status: "pending", Hidden: "xx"}))
	want := map[string]string{"name": "required", "status": "oneof", "Hidden": "max"}
	if len(got) != len(want) {
		t.Fatalf("FieldErrors() = %v, want %v", got, want)
	}
	for field, tag := range want {
		if got[field] != tag {
			t.Errorf("field %q: got tag %q, want %q", field, got[field], tag)
		}
	}
}

func TestFieldErrorsNil(t *testing.T) {
	if got := FieldErrors(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestFieldErrorsNonValidationError(t *testing.T) {
	got := FieldErrors(errors.New("boom"))
	if got["_"] != "boom" {
		t.Fatalf("unexpected details %v", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	v := New()
	if err := v.RegisterValidation("even", func(fl FieldLevel) bool { return fl.Field().Int()%2 == 0 }); err != nil {
		t.Fatalf("RegisterValidation: %v", err)
	}

	type payload struct {
		N int `json:"n" validate:"even"`
	}
	if err := v.Struct(payload{N: 2}); err != nil {
		t.Fatalf("expected 2 to pass: %v", err)
	}
	if FieldErrors(v.Struct(payload{N: 3}))["n"] != "even" {
		t.Fatal("expected 3 to fail the even tag")
	}
}
