package main

import (
	"errors"
	"os"

	"github.com/usealtoal/dugout/pkg/resolver"
	"github.com/usealtoal/dugout/pkg/vault"
	"github.com/usealtoal/dugout/pkg/vaulterr"
)

func asVaultErr(err error) (*vaulterr.Error, bool) {
	var ve *vaulterr.Error
	ok := errors.As(err, &ve)
	return ve, ok
}

func currentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

// openVault resolves the target vault (explicit flag, DUGOUT_VAULT, or
// filesystem discovery) and opens it.
func openVault(vaultFlag string) (*vault.Vault, error) {
	dir := currentDir()
	name, err := resolver.Resolve(dir, vaultFlag)
	if err != nil {
		return nil, err
	}
	return vault.Open(dir, name)
}
