package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorBuilder(t *testing.T) {
	base := stderrors.New("disk full")
	err := New(base).
		Component("snapshot").
		Category(CategoryImageSave).
		Context("path", "/tmp/snapshots").
		Build()

	if err.Error() != "disk full" {
		t.Errorf("expected message 'disk full', got %q", err.Error())
	}
	if err.GetComponent() != "snapshot" {
		t.Errorf("expected component 'snapshot', got %q", err.GetComponent())
	}
	if err.GetCategory() != string(CategoryImageSave) {
		t.Errorf("expected category %q, got %q", CategoryImageSave, err.GetCategory())
	}
	if err.GetContext()["path"] != "/tmp/snapshots" {
		t.Error("expected path context to be preserved")
	}
	if !Is(err, base) {
		t.Error("expected enhanced error to match wrapped error")
	}
}

func TestErrorBuilderDefaultsToGeneric(t *testing.T) {
	err := Newf("something went wrong").Build()
	if err.Category != CategoryGeneric {
		t.Errorf("expected generic category, got %q", err.Category)
	}
	if err.GetComponent() != ComponentUnknown {
		t.Errorf("expected unknown component, got %q", err.GetComponent())
	}
}

func TestEnhancedErrorIsMatchesByCategory(t *testing.T) {
	a := Newf("one").Category(CategoryDelivery).Build()
	b := Newf("two").Category(CategoryDelivery).Build()
	c := Newf("three").Category(CategoryNetwork).Build()

	if !stderrors.Is(a, b) {
		t.Error("expected errors with same category to match")
	}
	if stderrors.Is(a, c) {
		t.Error("expected errors with different categories not to match")
	}
}

func TestAsUnwrapsEnhancedError(t *testing.T) {
	err := Newf("boom").Component("dispatcher").Build()
	wrapped := Newf("wrapped: %w", err).Build()

	var ee *EnhancedError
	if !As(wrapped, &ee) {
		t.Fatal("expected As to find enhanced error")
	}
}
