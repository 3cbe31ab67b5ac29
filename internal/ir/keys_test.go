package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareUTF16(t *testing.T) {
	assert.Equal(t, 0, compareUTF16("abc", "abc"))
	assert.Equal(t, -1, compareUTF16("ab", "abc"))
	assert.Equal(t, 1, compareUTF16("b", "abc"))
	assert.Equal(t, -1, compareUTF16("\U00010000", "\uE000"))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"zeta": 1, "alpha": 2, "Beta": 3}
	assert.Equal(t, []string{"Beta", "alpha", "zeta"}, sortedKeys(m))
}
