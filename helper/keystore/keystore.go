package keystore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/umbracle/ethgo/wallet"
)

// LoadOrCreateKey reads the hex encoded private key at path, or generates a
// key and writes it there when the file does not exist. It reports whether
// the key was created.
func LoadOrCreateKey(path string) (*wallet.Key, bool, error) {
	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("failed to stat (%s): %w", path, err)
	}

	if err == nil {
		key, err := ReadKey(path)

		return key, false, err
	}

	key, err := wallet.GenerateKey()
	if err != nil {
		return nil, false, fmt.Errorf("unable to generate private key, %w", err)
	}

	raw, err := key.MarshallPrivateKey()
	if err != nil {
		return nil, false, err
	}

	if err := os.WriteFile(path, []byte(hex.EncodeToHex(raw)), 0600); err != nil {
		return nil, false, fmt.Errorf("unable to write private key to disk (%s), %w", path, err)
	}

	return key, true, nil
}

// ReadKey reads the hex encoded private key at path
func ReadKey(path string) (*wallet.Key, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key from disk (%s), %w", path, err)
	}

	return ParseKey(strings.TrimSpace(string(content)))
}

// ParseKey decodes a hex encoded private key
func ParseKey(raw string) (*wallet.Key, error) {
	buf, err := hex.DecodeHex(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	return wallet.NewWalletFromPrivKey(buf)
}
