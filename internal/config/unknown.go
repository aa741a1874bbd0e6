package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys per table. The empty table name holds the
// top-level keys. Site tables share one key set under "sites".
var knownKeys = map[string][]string{
	"":        {"auth", "journal", "log_level", "move", "sites"},
	"auth":    {"api_base_url", "authority", "client_id", "client_secret", "page_size", "scope", "tenant_id", "token_cache"},
	"move":    {"buffer_fraction", "max_buffer", "recovery_timeout", "verify_restore"},
	"journal": {"disabled", "path"},
	"sites":   {"drive_id", "site_id", "site_url"},
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		err := unknownKeyError(key)
		if seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key, suggesting the closest known
// key of the same table.
func unknownKeyError(key toml.Key) error {
	table, field := "", key[len(key)-1]

	switch {
	case len(key) >= 3 && key[0] == "sites":
		table = "sites"
		field = key[2]
	case len(key) >= 2:
		table = key[0]
		field = key[1]
	}

	known, ok := knownKeys[table]
	if !ok {
		// The table itself is unknown: suggest a top-level name.
		table, field, known = "", key[0], knownKeys[""]
	}

	where := "config key"
	if table != "" {
		where = fmt.Sprintf("key in [%s]", strings.Join(key[:len(key)-1], "."))
	}

	if suggestion := closestMatch(field, known); suggestion != "" {
		return fmt.Errorf("unknown %s %q, did you mean %q?", where, field, suggestion)
	}

	return fmt.Errorf("unknown %s %q", where, field)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
