package ton

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

// ParseAddress разбирает адрес кошелька в user-friendly (EQ.../UQ...) или raw (0:hex) формате
func ParseAddress(s string) (*address.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty address")
	}

	if strings.HasPrefix(s, "0:") || strings.HasPrefix(s, "-1:") {
		return parseRawAddress(s)
	}

	addr, err := address.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

// RawAddress адрес в виде workchain:hex
func RawAddress(addr *address.Address) string {
	return fmt.Sprintf("%d:%s", addr.Workchain(), hex.EncodeToString(addr.Data()))
}

// parseRawAddress парсит raw адрес формата "0:hex" или "-1:hex"
func parseRawAddress(rawAddr string) (*address.Address, error) {
	var workchain int32
	var hashHex string

	if strings.HasPrefix(rawAddr, "0:") {
		hashHex = rawAddr[2:]
	} else {
		workchain = -1
		hashHex = rawAddr[3:]
	}

	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex in address: %w", err)
	}
	if len(hashBytes) != 32 {
		return nil, fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(hashBytes))
	}

	return address.NewAddress(0, byte(workchain), hashBytes), nil
}
