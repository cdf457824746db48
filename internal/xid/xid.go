package xid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a random identifier such as "batch-3f2a...". The prefix is
// lowercased and must not be empty.
func New(prefix string) string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Valid reports whether id was produced by New with the given prefix.
func Valid(prefix string, id string) bool {
	rest, ok := strings.CutPrefix(id, strings.ToLower(prefix)+"-")
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
