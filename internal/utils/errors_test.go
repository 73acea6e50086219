package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeExtraction(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"cli error",
			NewCLIError(ErrCodeRateLimited, "rate limited").Build(),
			ErrCodeRateLimited,
		},
		{
			"wrapped cli error",
			fmt.Errorf("push: %w", NewCLIError(ErrCodeFileNotFound, "missing").Build()),
			ErrCodeFileNotFound,
		},
		{
			"plain error",
			errors.New("boom"),
			ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Fatalf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithPhase(t *testing.T) {
	err := NewCLIError(ErrCodeNetworkError, "connection reset").WithPhase("deleting").Build()
	if err.Phase != "deleting" {
		t.Fatalf("Phase = %q, want %q", err.Phase, "deleting")
	}
	if !IsCode(err, ErrCodeNetworkError) {
		t.Fatal("IsCode should match the built code")
	}
	want := "deleting: connection reset (NETWORK_ERROR)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
