package fetcher

import (
	"math/rand/v2"
	"net/url"
	"sync"
)

// DefaultIdentities is the pool of desktop browser signatures used when no
// pool is configured.
var DefaultIdentities = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
}

// Rotator hands out client identities and per-destination headers.
type Rotator struct {
	mu   sync.Mutex
	pool []string
	rng  *rand.Rand
}

// NewRotator creates a rotator over pool. Blank entries are ignored and an
// empty pool falls back to DefaultIdentities. A nil rng seeds a new one.
func NewRotator(pool []string, rng *rand.Rand) *Rotator {
	clean := make([]string, 0, len(pool))
	for _, p := range pool {
		if p != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultIdentities...)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Rotator{pool: clean, rng: rng}
}

// Next returns a pseudo-random identity from the pool. It never returns "".
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool[r.rng.IntN(len(r.pool))]
}

// Identities returns a copy of the pool.
func (r *Rotator) Identities() []string {
	return append([]string(nil), r.pool...)
}

// HeadersFor returns browser-like request headers for the destination.
// Referer and Origin are set to the destination's scheme and host.
func (r *Rotator) HeadersFor(rawURL string) map[string]string {
	h := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		"Cache-Control":             "max-age=0",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-User":            "?1",
	}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		origin := u.Scheme + "://" + u.Host
		h["Referer"] = origin + "/"
		h["Origin"] = origin
	} else {
		h["Sec-Fetch-Site"] = "none"
	}
	return h
}
