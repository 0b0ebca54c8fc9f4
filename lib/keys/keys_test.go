package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = "642ce4e20f09c9f4d285c2b336063eaafbe4cb06dece8134f3a64bdd8f8c0c24df73e1a2e7056359b6db61e179ff45e5ada51d14f07b30becb6d92b961d35df4"

func TestSecret(t *testing.T) {
	p, err := NewParserFromSeed(seed)
	require.NoError(t, err)

	cases := []struct {
		name, credential, address string
		err                       error
	}{
		{"hex", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", nil},
		{"hex0x", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", nil},
		{"hd", "hd:2/0/1", "0xf4cefc8d1afaa51d5a5e7f57d214b60429ca4378", nil},
		{"hdNamed", "hd:2/external/1", "0xf4cefc8d1afaa51d5a5e7f57d214b60429ca4378", nil},
		{"short", "4c0883a6", "", ErrInvalidKey},
		{"notHex", "user1_secret_key", "", ErrInvalidKey},
		{"hdPath", "hd:2/0", "", ErrInvalidKey},
		{"hdChange", "hd:2/7/1", "", ErrInvalidKey},
		{"hdWallet", "hd:x/0/1", "", ErrInvalidKey},
	}

	for _, c := range cases {
		k, err := p.Secret(c.credential)
		if c.err != nil {
			assert.ErrorIs(t, err, c.err, c.name)
			assert.False(t, k.Valid(), c.name)

			continue
		}

		require.NoError(t, err, c.name)
		assert.True(t, strings.EqualFold(c.address, k.Address), "[%s] got %s", c.name, k.Address)
		assert.True(t, k.Valid(), c.name)
		assert.Len(t, k.Hex(), 64, c.name)
	}
}

func TestSecretNoHD(t *testing.T) {
	p, err := NewParserFromSeed("")
	require.NoError(t, err)

	_, err = p.Secret("hd:0/0/0")
	assert.ErrorIs(t, err, ErrNoHD)

	_, err = NewParserFromSeed("zz")
	assert.Error(t, err)
}

func TestPublic(t *testing.T) {
	a, err := Public("0x2c7536e3605d9c16a7a3d7b1898e529396a65c23")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", a)

	for _, bad := range []string{"", "0x", "user2_public_key", "0x2c7536e3605d9c16a7a3d7b1898e529396a65c2"} {
		_, err = Public(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}
