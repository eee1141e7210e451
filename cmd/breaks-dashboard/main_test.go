package main

import "testing"

func TestParseNumber(t *testing.T) {
	n, err := parseNumber([]string{"done", "42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("parseNumber = %d, ожидали 42", n)
	}

	if _, err := parseNumber([]string{"done"}); err == nil {
		t.Error("ожидали ошибку без номера")
	}
	if _, err := parseNumber([]string{"done", "abc"}); err == nil {
		t.Error("ожидали ошибку для нечислового номера")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("BREAKS_SERVER_URL", "")
	if got := envOr("BREAKS_SERVER_URL", "http://fallback"); got != "http://fallback" {
		t.Errorf("envOr = %q", got)
	}

	t.Setenv("BREAKS_SERVER_URL", "http://set")
	if got := envOr("BREAKS_SERVER_URL", "http://fallback"); got != "http://set" {
		t.Errorf("envOr = %q", got)
	}
}
