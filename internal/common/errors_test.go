package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserErrorFormatting(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewUserError("input file is not a transaction export", cause)

	assert.Equal(t, "input file is not a transaction export: unexpected end of JSON input", err.Error())
	assert.ErrorIs(t, err, cause, "the cause must stay reachable for errors.Is")

	bare := NewUserError("no database configured", nil)
	assert.Equal(t, "no database configured", bare.Error())
}

func TestSentinelWrappingSurvivesFmtErrorf(t *testing.T) {
	err := fmt.Errorf("%w: category %q", ErrDuplicateEntry, "Shopping")
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	assert.NotErrorIs(t, err, ErrNotFound)
}
