package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	assert.Equal(t, "file", Pluralize("file", 1))
	assert.Equal(t, "files", Pluralize("file", 0))
	assert.Equal(t, "files", Pluralize("file", 2))
}

func TestCountNoun(t *testing.T) {
	assert.Equal(t, "1 transfer", CountNoun(1, "transfer"))
	assert.Equal(t, "12 objects", CountNoun(12, "object"))
}
