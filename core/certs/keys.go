package certs

import (
	"crypto"
	"fmt"

	"github.com/go-acme/lego/v4/certcrypto"
)

// GenerateKey creates a private key of the configured type. Used both for
// the ACME account identity and for each issued certificate's key pair.
func GenerateKey(keyType certcrypto.KeyType) (crypto.Signer, error) {
	key, err := certcrypto.GeneratePrivateKey(keyType)
	if err != nil {
		return nil, fmt.Errorf("generate %s private key: %w", keyType, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrKeyNotSigner
	}
	return signer, nil
}

// ParseKeyPEM decodes a PEM-encoded private key as persisted by store
// backends for the ACME account.
func ParseKeyPEM(data []byte) (crypto.Signer, error) {
	key, err := certcrypto.ParsePEMPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrKeyNotSigner
	}
	return signer, nil
}

// EncodeKeyPEM encodes a private key to PEM for persistence.
func EncodeKeyPEM(key crypto.Signer) []byte {
	return certcrypto.PEMEncode(key)
}
