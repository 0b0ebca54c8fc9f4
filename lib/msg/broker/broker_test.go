package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	mb, err := New("", "")
	require.NoError(t, err)
	assert.Nil(t, mb)

	_, err = New("carrier-pigeon", "")
	assert.ErrorContains(t, err, "unknown message broker type")
}
