package duration

import (
	"errors"
	"testing"
	"time"
)

func TestValidateNumericOnlyRejected(t *testing.T) {
	t.Parallel()

	_, err := Validate("3600", time.Now())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestValidateUnparseable(t *testing.T) {
	t.Parallel()

	_, err := Validate("not-to-be-parsed", time.Now())
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}

func TestValidateUnknownUnitRejected(t *testing.T) {
	t.Parallel()

	_, err := Validate("5x", time.Now())
	var unknownErr *UnknownUnitError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownUnitError, got %v", err)
	}
	if unknownErr.Unit != "x" {
		t.Fatalf("unexpected unit: %q", unknownErr.Unit)
	}
}

func TestValidatePast(t *testing.T) {
	t.Parallel()

	baseline := time.Now()
	for _, input := range []string{"-1h", "0s", "1h-2h"} {
		if _, err := Validate(input, baseline); !errors.Is(err, ErrPast) {
			t.Fatalf("input %q: expected ErrPast, got %v", input, err)
		}
	}
}

func TestValidateSumsTokens(t *testing.T) {
	t.Parallel()

	baseline := time.Unix(1_700_000_000, 0)
	cases := []struct {
		input string
		want  time.Duration
	}{
		{"1h", time.Hour},
		{"5m", 5 * time.Minute},
		{"12hr", 12 * time.Hour},
		{"14d", 14 * 24 * time.Hour},
		{"5w", 5 * 7 * 24 * time.Hour},
		{"1w2d3h", (7*24 + 2*24 + 3) * time.Hour},
		{"1mo", 30 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{"500w", 500 * 7 * 24 * time.Hour},
		{"2H", 2 * time.Hour},
	}

	for _, tc := range cases {
		got, err := Validate(tc.input, baseline)
		if err != nil {
			t.Fatalf("input %q: unexpected error %v", tc.input, err)
		}
		if want := baseline.Add(tc.want); !got.Equal(want) {
			t.Fatalf("input %q: got %v want %v", tc.input, got, want)
		}
	}
}

func TestValidateUsesBaseline(t *testing.T) {
	t.Parallel()

	baseline := time.Now().Add(time.Hour)
	got, err := Validate("1h", baseline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(baseline.Add(time.Hour)) {
		t.Fatalf("expected expiry relative to baseline, got %v", got)
	}
}
