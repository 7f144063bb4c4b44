// Package ton checks TON wallet addresses given as withdrawal destinations.
package ton

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrAddress is returned for strings that are not TON addresses.
var ErrAddress = errors.New("invalid TON address")

// user-friendly form: 1 byte flags + 1 byte workchain + 32 bytes hash + 2 bytes CRC
const friendlyLen = 36

func isRaw(address string) bool {
	wc, hash, ok := strings.Cut(address, ":")
	if !ok || (wc != "0" && wc != "-1") || len(hash) != 64 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func decodeFriendly(address string) ([]byte, error) {
	if len(address) != 48 {
		return nil, ErrAddress
	}
	decoded, err := base64.URLEncoding.DecodeString(address)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(address)
	}
	if err != nil || len(decoded) != friendlyLen {
		return nil, ErrAddress
	}
	return decoded, nil
}

// ValidateAddress accepts raw ("0:<hex>") and user-friendly (48 char base64)
// addresses.
func ValidateAddress(address string) bool {
	if isRaw(address) {
		return true
	}
	_, err := decodeFriendly(address)
	return err == nil
}

// NormalizeAddress converts address to raw format, lowercasing the hash.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if isRaw(address) {
		return strings.ToLower(address), nil
	}

	decoded, err := decodeFriendly(address)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrAddress, address)
	}
	workchain := int8(decoded[1])
	return fmt.Sprintf("%d:%s", workchain, hex.EncodeToString(decoded[2:34])), nil
}
