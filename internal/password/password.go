// Package password handles crypt(3) password hashes: generating them
// from declared plaintext and recognising the formats the directory can
// store.
package password

import (
	"errors"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
)

var ErrUnsupportedHash = errors.New("unsupported password hash")

// Hash derives a sha512-crypt hash from plaintext with a random salt.
func Hash(plain string) (string, error) {
	return sha512_crypt.New().Generate([]byte(plain), nil)
}

// Supported reports whether hash is in a format the engine can assert.
// Supported formats: $1$ (md5-crypt), $5$ (sha256-crypt), $6$
// (sha512-crypt). Note: newer formats like yescrypt are not supported.
func Supported(hash string) bool {
	for _, prefix := range []string{
		sha512_crypt.MagicPrefix,
		sha256_crypt.MagicPrefix,
		md5_crypt.MagicPrefix,
	} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}

// Verify checks plaintext against a supported crypt hash.
func Verify(hash, plain string) (bool, error) {
	var crypters []crypt.Crypter
	crypters = append(crypters, sha512_crypt.New())
	crypters = append(crypters, sha256_crypt.New())
	crypters = append(crypters, md5_crypt.New())

	for _, c := range crypters {
		if err := c.Verify(hash, []byte(plain)); err == nil {
			return true, nil
		}
	}
	if !Supported(hash) {
		return false, ErrUnsupportedHash
	}
	return false, nil
}
