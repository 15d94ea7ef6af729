package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv(envInstanceID, "publisher-2")
	assert.Equal(t, "publisher-2", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(envInstanceID, "")
	assert.NotEmpty(t, GetID())
}
