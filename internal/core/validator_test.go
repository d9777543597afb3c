package core

import (
	"log/slog"
	"testing"

	"plantwatch/internal/types"
)

type sample struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity" validate:"required"`
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator(slog.Default())
	temp, hum := 21.0, 40.0
	if err := v.ValidateStruct(sample{Temperature: &temp, Humidity: &hum}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_ReportsJSONFieldNames(t *testing.T) {
	v := NewValidator(slog.Default())
	temp := 21.0

	err := v.ValidateStruct(sample{Temperature: &temp})
	if !types.HasCode(err, types.ErrCodeValidationInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}

	appErr := err.(*types.AppError)
	fields, ok := appErr.Details["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected fields detail, got %+v", appErr.Details)
	}
	if fields["humidity"] != "required" {
		t.Errorf("expected humidity=required, got %+v", fields)
	}
	if _, present := fields["temperature"]; present {
		t.Error("temperature should not be reported")
	}
}

func TestValidateStruct_NonStructIsInternal(t *testing.T) {
	v := NewValidator(slog.Default())
	err := v.ValidateStruct(42)
	if !types.HasCode(err, types.ErrCodeInternalUnexpected) {
		t.Errorf("expected internal error, got %v", err)
	}
}
