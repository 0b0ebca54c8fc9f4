// Package keys implements the credential collaborator: it turns credential strings into usable signing keys and
// validates public addresses. Key bytes are never inspected outside of this package.
//
// Two credential formats are accepted:
//
// - a 32-byte hex encoded secp256k1 private key, with or without the 0x prefix.
//
// - an HD wallet path "hd:<wallet>/<change>/<id>" derived from the seed the Parser was created with. Change can be
// given as 0/1 or external/change.
package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tarancss/hd"
)

// HDPrefix marks a credential to be derived from the HD wallet.
const HDPrefix = "hd:"

// Errors returned.
var (
	ErrInvalidKey = errors.New("invalid key")
	ErrNoHD       = errors.New("HD wallet not available")
)

// Key is a parsed credential.
type Key struct {
	Address string // checksummed public address
	priv    *ecdsa.PrivateKey
}

// Hex returns the hex encoded private key (no 0x prefix) as expected by the network clients.
func (k Key) Hex() string {
	if k.priv == nil {
		return ""
	}

	return hex.EncodeToString(crypto.FromECDSA(k.priv))
}

// Valid returns true if the key can sign transactions.
func (k Key) Valid() bool {
	return k.priv != nil
}

// Parser parses credentials. hd may be nil, in which case HD credentials are refused.
type Parser struct {
	hd *hd.HdWallet
}

// NewParser returns a Parser deriving HD credentials from hdw.
func NewParser(hdw *hd.HdWallet) *Parser {
	return &Parser{hd: hdw}
}

// NewParserFromSeed loads an HD wallet from a hex encoded seed. An empty seed returns a Parser without HD wallet.
func NewParserFromSeed(seed string) (*Parser, error) {
	if seed == "" {
		return &Parser{}, nil
	}

	b, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("keys: decoding seed: %w", err)
	}

	hdw, err := hd.Init(b)
	if err != nil {
		return nil, fmt.Errorf("keys: loading HD wallet: %w", err)
	}

	return &Parser{hd: hdw}, nil
}

// Secret parses a credential into a Key.
func (p *Parser) Secret(credential string) (Key, error) {
	if strings.HasPrefix(credential, HDPrefix) {
		return p.derive(strings.TrimPrefix(credential, HDPrefix))
	}

	priv, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(credential, "0x"), "0X"))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %s", ErrInvalidKey, err.Error())
	}

	return newKey(priv), nil
}

// derive obtains the key at path "<wallet>/<change>/<id>" from the HD wallet.
func (p *Parser) derive(path string) (Key, error) {
	if p == nil || p.hd == nil {
		return Key{}, ErrNoHD
	}

	parts := strings.Split(path, "/")
	if len(parts) != 3 { //nolint:gomnd // wallet/change/id
		return Key{}, fmt.Errorf("%w: HD path %q should be <wallet>/<change>/<id>", ErrInvalidKey, path)
	}

	wallet, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil {
		return Key{}, fmt.Errorf("%w: wallet %q", ErrInvalidKey, parts[0])
	}

	var change uint8

	switch parts[1] {
	case "0", "external":
		change = hd.External
	case "1", "change":
		change = hd.Change
	default:
		return Key{}, fmt.Errorf("%w: change %q", ErrInvalidKey, parts[1])
	}

	id, err := strconv.ParseUint(parts[2], 0, 32)
	if err != nil {
		return Key{}, fmt.Errorf("%w: id %q", ErrInvalidKey, parts[2])
	}

	_, key, _, err := p.hd.Address(uint32(wallet), change, uint32(id))
	if err != nil {
		return Key{}, fmt.Errorf("%w: deriving %s: %s", ErrInvalidKey, path, err.Error())
	}

	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %s", ErrInvalidKey, err.Error())
	}

	return newKey(priv), nil
}

// Public validates a public address and returns it checksummed.
func Public(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q is not an address", ErrInvalidKey, address)
	}

	return common.HexToAddress(address).Hex(), nil
}

func newKey(priv *ecdsa.PrivateKey) Key {
	return Key{Address: crypto.PubkeyToAddress(priv.PublicKey).Hex(), priv: priv}
}
