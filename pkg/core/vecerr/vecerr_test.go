package vecerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestDimensionErrorUnwrapsToSentinel(t *testing.T) {
	err := &DimensionError{Want: 128, Got: 64}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Error("DimensionError should match ErrDimensionMismatch")
	}

	wrapped := fmt.Errorf("insert failed: %w", err)
	var dimErr *DimensionError
	if !errors.As(wrapped, &dimErr) {
		t.Fatal("errors.As should recover the *DimensionError through wrapping")
	}
	if dimErr.Want != 128 || dimErr.Got != 64 {
		t.Errorf("recovered = {%d %d}, want {128 64}", dimErr.Want, dimErr.Got)
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrDimensionMismatch,
		ErrInvalidArgument,
		ErrNotFound,
		ErrIndexUnavailable,
		ErrCorruptArtifact,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}
