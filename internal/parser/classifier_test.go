package parser

import (
	"testing"

	"github.com/rxlab/tempmail/pkg/models"
)

func TestClassifyOTPMessage(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	got := c.Classify("Your OTP", "code is 482913, expires soon", "")

	if got.Type != models.TypeOTP {
		t.Errorf("Type: got %q, want %q", got.Type, models.TypeOTP)
	}
	if got.Code != "482913" {
		t.Errorf("Code: got %q, want %q", got.Code, "482913")
	}
}

func TestClassifyNoIntentKeywords(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	// A valid-length digit run without intent keywords is discarded.
	got := c.Classify("Shipping update", "order 4821 shipped", "")

	if got.Type != models.TypeNormal {
		t.Errorf("Type: got %q, want %q", got.Type, models.TypeNormal)
	}
	if got.Code != "" {
		t.Errorf("Code: got %q, want empty", got.Code)
	}
}

func TestClassifyLongDigitRunIsNotACode(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	got := c.Classify("Shipping update", "order 12345678901 shipped", "")

	if got.Type != models.TypeNormal {
		t.Errorf("Type: got %q, want %q", got.Type, models.TypeNormal)
	}
	if got.Code != "" {
		t.Errorf("Code: got %q, want empty", got.Code)
	}
}

func TestClassifyDigitRunLengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"three digits too short", "your code is 123", ""},
		{"four digits", "your code is 1234", "1234"},
		{"eight digits", "your code is 12345678", "12345678"},
		{"nine digits too long", "your code is 123456789", ""},
		{"first run wins", "code 1111 or maybe 2222", "1111"},
		{"short run skipped", "code 12 then 4567", "4567"},
	}

	c := NewRegexClassifier()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Classify("", tt.body, "")
			if got.Type != models.TypeOTP {
				t.Fatalf("Type: got %q, want %q", got.Type, models.TypeOTP)
			}
			if got.Code != tt.want {
				t.Errorf("Code: got %q, want %q", got.Code, tt.want)
			}
		})
	}
}

func TestClassifyIntentInSubjectOnly(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	got := c.Classify("Please verify your account", "use 9712 today", "")

	if got.Type != models.TypeOTP {
		t.Errorf("Type: got %q, want %q", got.Type, models.TypeOTP)
	}
	if got.Code != "9712" {
		t.Errorf("Code: got %q, want %q", got.Code, "9712")
	}
}

func TestClassifyHTMLFallback(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	got := c.Classify("Hello", "", "<p>verification number: 5678</p>")

	if got.Type != models.TypeOTP {
		t.Errorf("Type: got %q, want %q", got.Type, models.TypeOTP)
	}
	if got.Code != "5678" {
		t.Errorf("Code: got %q, want %q", got.Code, "5678")
	}
}

func TestClassifyTextBodyPreferredOverHTML(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	got := c.Classify("Your code", "code 1234", "<p>code 9999</p>")

	if got.Code != "1234" {
		t.Errorf("Code: got %q, want %q", got.Code, "1234")
	}
}

func TestClassifyEmptyMessage(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	got := c.Classify("", "", "")

	if got.Type != models.TypeNormal {
		t.Errorf("Type: got %q, want %q", got.Type, models.TypeNormal)
	}
	if got.Code != "" {
		t.Errorf("Code: got %q, want empty", got.Code)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	c := NewRegexClassifier()
	first := c.Classify("Your OTP", "code is 482913, expires soon", "")
	for i := 0; i < 10; i++ {
		again := c.Classify("Your OTP", "code is 482913, expires soon", "")
		if again != first {
			t.Fatalf("classification not deterministic: got %+v, want %+v", again, first)
		}
	}
}
