package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The listing queries warn and move on when a document fails to decode;
// exercising the full skip path needs the Firestore emulator, but the warning
// sink itself is plain Go.
func TestFirestoreWarnf_UsesInjectedLogger(t *testing.T) {
	var lines []string
	s := &Firestore{Logf: func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}}

	s.warnf("skipping evidence %s: %v", "ev-1", errors.New("firestore: cannot set field"))

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "skipping evidence ev-1")
}
