package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedChapterID reports a chapter id that does not parse back into
// a (comic id, order) pair. It is a client-input error, not a server fault.
var ErrMalformedChapterID = errors.New("malformed chapter id")

// ChapterID derives the chapter identifier from its comic id and 1-based
// order. The result doubles as a routing key and must stay parseable by
// ParseChapterID.
func ChapterID(comicID string, order int) string {
	return fmt.Sprintf("%s-%d", comicID, order)
}

// ParseChapterID splits a chapter id back into its (comic id, order) pair.
// Ids without exactly one separator are rejected.
func ParseChapterID(id string) (comicID string, order int, err error) {
	parts := strings.Split(id, "-")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedChapterID, id)
	}
	order, convErr := strconv.Atoi(parts[1])
	if convErr != nil || order < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedChapterID, id)
	}
	return parts[0], order, nil
}
