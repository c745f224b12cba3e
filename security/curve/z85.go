package curve

import (
	"github.com/multisocket/thrbench/errs"
)

// ErrBadZ85 is returned for malformed Z85 text or unaligned binary input.
const ErrBadZ85 = errs.Err("bad z85 encoding")

const z85Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"

var z85Decoder [256]byte

func init() {
	for i := range z85Decoder {
		z85Decoder[i] = 0xff
	}
	for i := 0; i < len(z85Alphabet); i++ {
		z85Decoder[z85Alphabet[i]] = byte(i)
	}
}

// Z85Encode encodes src, its length must be a multiple of 4.
func Z85Encode(src []byte) (string, error) {
	if len(src)%4 != 0 {
		return "", ErrBadZ85
	}
	dst := make([]byte, len(src)/4*5)
	for i, j := 0, 0; i < len(src); i, j = i+4, j+5 {
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 | uint32(src[i+2])<<8 | uint32(src[i+3])
		for k := 4; k >= 0; k-- {
			dst[j+k] = z85Alphabet[v%85]
			v /= 85
		}
	}
	return string(dst), nil
}

// Z85Decode decodes s, its length must be a multiple of 5.
func Z85Decode(s string) ([]byte, error) {
	if len(s)%5 != 0 {
		return nil, ErrBadZ85
	}
	dst := make([]byte, len(s)/5*4)
	for i, j := 0, 0; i < len(s); i, j = i+5, j+4 {
		var v uint64
		for k := 0; k < 5; k++ {
			d := z85Decoder[s[i+k]]
			if d == 0xff {
				return nil, ErrBadZ85
			}
			v = v*85 + uint64(d)
		}
		if v > 0xffffffff {
			return nil, ErrBadZ85
		}
		dst[j] = byte(v >> 24)
		dst[j+1] = byte(v >> 16)
		dst[j+2] = byte(v >> 8)
		dst[j+3] = byte(v)
	}
	return dst, nil
}
