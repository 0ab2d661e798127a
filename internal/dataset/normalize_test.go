package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "usa", NormalizeLabel(" USA "))
	assert.Equal(t, "united states", NormalizeLabel("United States"))
	assert.Equal(t, "mexico", NormalizeLabel("México"))
	assert.Equal(t, "zurich", NormalizeLabel("Zürich"))
	assert.Equal(t, "", NormalizeLabel("   "))
}

func TestIsUS(t *testing.T) {
	labels := []string{"us", "usa", "united states", "united states of america"}

	assert.True(t, IsUS("USA", labels))
	assert.True(t, IsUS("U.S.A.", labels))
	assert.True(t, IsUS("united states", labels))
	assert.True(t, IsUS(" United States of America ", labels))
	assert.False(t, IsUS("Canada", labels))
	assert.False(t, IsUS("", labels))
}
