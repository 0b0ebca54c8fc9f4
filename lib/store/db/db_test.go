package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/rpay/lib/store/memory"
)

func TestNew(t *testing.T) {
	for _, typ := range []string{"", MEMORY} {
		dh, err := New(typ, "")
		require.NoError(t, err)
		assert.IsType(t, &memory.Memory{}, dh)
		assert.NoError(t, Close(dh))
	}

	_, err := New("oracle", "")
	assert.ErrorContains(t, err, "unknown database type")

	assert.NoError(t, Close(nil))
}
