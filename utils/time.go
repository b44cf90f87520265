package utils

import "time"

// ParseOptionalTime parses an optional RFC3339 string from a request body.
// Nil or empty input yields nil without error.
func ParseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
