package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourcePairKey(t *testing.T) {
	// Lookup must be symmetric: the pair is a set, not an ordered tuple.
	assert.Equal(t,
		SourcePairKey("com.kbstar.kbbank", "viva.republica.toss"),
		SourcePairKey("viva.republica.toss", "com.kbstar.kbbank"))

	assert.Equal(t, "a|b", SourcePairKey("b", "a"))
	assert.Equal(t, "a|b", SourcePairKey("a", "b"))
}

func TestValidResolution(t *testing.T) {
	assert.True(t, ValidResolution(KeepBoth))
	assert.True(t, ValidResolution(KeepFirst))
	assert.True(t, ValidResolution(KeepSecond))
	assert.False(t, ValidResolution(""))
	assert.False(t, ValidResolution("KEEP_ALL"))
}
