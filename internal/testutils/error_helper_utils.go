package testutils

import (
	"strings"

	"github.com/pkg/errors"
)

// ContainsError reports whether containedErr is part of the chain of wrappedErr, either as a wrapped
// value or as one of the ": " separated messages. Tests don't need to rebuild wrapped hierarchies.
func ContainsError(wrappedErr error, containedErr error) bool {
	if containedErr == nil && wrappedErr == nil {
		return true
	}
	if containedErr == nil || wrappedErr == nil {
		return false
	}
	if errors.Is(wrappedErr, containedErr) {
		return true
	}

	for _, v := range strings.Split(wrappedErr.Error(), ": ") {
		if strings.TrimSpace(v) == containedErr.Error() {
			return true
		}
	}
	return false
}

