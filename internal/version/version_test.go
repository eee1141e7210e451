package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	for _, want := range []string{"version=", "commit=", "date=", "go="} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, нет поля %q", s, want)
		}
	}
}
