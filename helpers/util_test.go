package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSplitPart(t *testing.T) {
	part, err := GetSplitPart("a/b/c", "/", 1)
	assert.NoError(t, err)
	assert.Equal(t, "b", part)

	_, err = GetSplitPart("a/b/c", "/", 5)
	assert.Error(t, err)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Annual Fee: $95", "annual fee"))
	assert.True(t, ContainsAny("cdn.example.com/LOGO.png", "logo", "icon"))
	assert.False(t, ContainsAny("card art", "logo", "icon"))
	assert.False(t, ContainsAny("anything"))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c  "))
	assert.Equal(t, "", CollapseWhitespace("   "))
}
