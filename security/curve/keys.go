package curve

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/multisocket/thrbench/errs"
)

// KeySize is the binary size of curve keys, their Z85 text is 40 characters.
const KeySize = 32

// ErrBadKey is returned for keys of wrong size or encoding.
const ErrBadKey = errs.Err("bad curve key")

// Key is a curve25519 public or secret key.
type Key [KeySize]byte

// KeyPair is a curve25519 key pair.
type KeyPair struct {
	Public Key
	Secret Key
}

// ParseKey parse a key from its Z85 text or raw 32 bytes.
func ParseKey(s string) (k Key, err error) {
	switch len(s) {
	case KeySize:
		copy(k[:], s)
		return
	case KeySize * 5 / 4:
		var b []byte
		if b, err = Z85Decode(s); err != nil {
			err = ErrBadKey
			return
		}
		copy(k[:], b)
		return
	}
	err = ErrBadKey
	return
}

// String returns the Z85 text of the key.
func (k Key) String() string {
	s, _ := Z85Encode(k[:])
	return s
}

// GenerateKeyPair create a random key pair.
func GenerateKeyPair() (kp KeyPair, err error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return
	}
	kp.Public, kp.Secret = *pub, *sec
	return
}

// PublicFromSecret derive the public key of a secret key.
func PublicFromSecret(secret Key) (pub Key, err error) {
	var b []byte
	if b, err = curve25519.X25519(secret[:], curve25519.Basepoint); err != nil {
		return
	}
	copy(pub[:], b)
	return
}
