package fetcher

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestRotator_NextFromPool(t *testing.T) {
	pool := []string{"a", "b", "c"}
	r := NewRotator(pool, rand.New(rand.NewPCG(7, 7)))

	seen := map[string]bool{}
	for range 200 {
		id := r.Next()
		if !slices.Contains(pool, id) {
			t.Fatalf("Next() = %q, not in pool", id)
		}
		seen[id] = true
	}
	if len(seen) != len(pool) {
		t.Errorf("expected every identity to be used, saw %v", seen)
	}
}

func TestRotator_EmptyPoolUsesDefaults(t *testing.T) {
	r := NewRotator([]string{"", ""}, nil)
	if got := len(r.Identities()); got != len(DefaultIdentities) {
		t.Fatalf("expected %d default identities, got %d", len(DefaultIdentities), got)
	}
	for range 20 {
		if r.Next() == "" {
			t.Fatal("Next() returned empty identity")
		}
	}
}

func TestRotator_HeadersFor(t *testing.T) {
	h := NewRotator(nil, nil).HeadersFor("https://www.cobasi.com.br/pesquisa?terms=Bravecto")

	if h["Referer"] != "https://www.cobasi.com.br/" {
		t.Errorf("Referer = %q", h["Referer"])
	}
	if h["Origin"] != "https://www.cobasi.com.br" {
		t.Errorf("Origin = %q", h["Origin"])
	}
	if h["Accept-Language"] == "" {
		t.Error("Accept-Language missing")
	}
}

func TestRotator_HeadersForBadURL(t *testing.T) {
	h := NewRotator(nil, nil).HeadersFor("::not a url")
	if _, ok := h["Referer"]; ok {
		t.Error("Referer should be omitted for an unparseable URL")
	}
	if h["Sec-Fetch-Site"] != "none" {
		t.Errorf("Sec-Fetch-Site = %q, want none", h["Sec-Fetch-Site"])
	}
}
