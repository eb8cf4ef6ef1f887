// Package jsonutil locates and repairs JSON payloads inside possibly
// damaged text. The data bank store uses it to decode entry arrays written
// by older application versions.
package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/quailyquaily/uniai"
)

var (
	ErrEmptyInput       = errors.New("empty json input")
	ErrNoJSONCandidates = errors.New("no json candidates")
)

// FindJSONPayload attempts to locate a valid JSON payload in the input text,
// trying the raw text first and then uniai's repair helpers.
func FindJSONPayload(text string) ([]byte, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, ErrEmptyInput
	}

	var lastErr error
	for _, cand := range candidates(raw) {
		if strings.TrimSpace(cand) == "" {
			continue
		}
		var tmp any
		if err := json.Unmarshal([]byte(cand), &tmp); err != nil {
			lastErr = err
			continue
		}
		return []byte(cand), nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoJSONCandidates
}

// DecodeWithFallback finds a JSON payload and unmarshals it into dst.
func DecodeWithFallback(text string, dst any) error {
	data, err := FindJSONPayload(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func candidates(raw string) []string {
	out := make([]string, 0, 6)
	seen := make(map[string]bool, 6)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(raw)
	if cands, err := uniai.CollectJSONCandidates(raw); err == nil {
		for _, c := range cands {
			add(c)
		}
	}
	for _, c := range uniai.FindJSONSnippets(raw) {
		add(c)
	}
	add(uniai.StripNonJSONLines(raw))
	add(uniai.AttemptJSONRepair(raw))
	return out
}
