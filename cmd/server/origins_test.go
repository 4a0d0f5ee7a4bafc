package main

import (
	"slices"
	"testing"
)

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:5173", "https://app.example.com", "not a url", "*"})
	want := []string{"localhost:5173", "app.example.com", "*"}
	if !slices.Equal(got, want) {
		t.Errorf("originHosts = %q, want %q", got, want)
	}
}
