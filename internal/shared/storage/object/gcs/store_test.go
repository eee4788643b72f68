package gcs

import "testing"

func TestObjectNameAndURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		prefix, key, want string
	}{
		{"", "100000000543/form.pdf", "100000000543/form.pdf"},
		{"intake", "/100000000543/form.pdf", "intake/100000000543/form.pdf"},
	}
	for _, tt := range tests {
		if got := objectName(tt.prefix, tt.key); got != tt.want {
			t.Fatalf("objectName(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
	if got := publicURL("pantry", "intake/Pet Form.pdf"); got != "https://storage.googleapis.com/pantry/intake/Pet%20Form.pdf" {
		t.Fatalf("unexpected url %q", got)
	}
}
