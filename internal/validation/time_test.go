package validation

import (
	"errors"
	"testing"
)

func TestAcceptTimeInput(t *testing.T) {
	tests := []struct {
		current string
		next    string
		want    string
	}{
		{current: "", next: "7", want: "7"},
		{current: "7", next: "7.", want: "7."},
		{current: "7.", next: "7.2", want: "7.2"},
		{current: "7.2", next: "7.23", want: "7.23"},
		{current: "7.23", next: "7.234", want: "7.23"},
		{current: "", next: ".", want: "0."},
		{current: "", next: ".5", want: ".5"},
		{current: "9", next: "10", want: "10"},
		{current: "1", next: "11", want: "1"},
		{current: "10", next: "10.01", want: "10"},
		{current: "7", next: "7a", want: "7"},
		{current: "7", next: "-7", want: "7"},
		{current: "7.2", next: "7.2.", want: "7.2"},
		{current: "7.23", next: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.next, func(t *testing.T) {
			got := AcceptTimeInput(tt.current, tt.next)
			if got != tt.want {
				t.Errorf("AcceptTimeInput(%q, %q) = %q, want %q", tt.current, tt.next, got, tt.want)
			}
		})
	}
}

func TestParseSubmittableTime(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr error
	}{
		{in: "7.23", want: 7.23},
		{in: " 2.1 ", want: 2.1},
		{in: "0.", wantErr: ErrTimeZero},
		{in: "0", wantErr: ErrTimeZero},
		{in: "", wantErr: ErrTimeRequired},
		{in: "abc", wantErr: ErrTimeInvalid},
		{in: "-1", wantErr: ErrTimeZero},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSubmittableTime(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseSubmittableTime(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSubmittableTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
