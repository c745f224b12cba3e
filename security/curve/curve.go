// Package curve implements a CURVE style security mechanism: a handshake where
// both peers prove possession of their curve25519 secret keys and exchange
// transient keys, then authenticated encryption of every message with the
// transient shared key of the connection.
package curve

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/box"

	"github.com/multisocket/thrbench/errs"
)

// errors
const (
	ErrHandshake = errs.Err("curve handshake failed")
	ErrDecrypt   = errs.Err("curve message decrypt failed")
)

const (
	version  = 2
	nonceLen = 24

	// HELLO: magic, version, client key, nonce, box[client transient key](C->S)
	helloSize = len(helloMagic) + 1 + KeySize + nonceLen + KeySize + box.Overhead
	// WELCOME: nonce, box[server transient key, client nonce](S->C)
	welcomeSize = nonceLen + KeySize + nonceLen + box.Overhead

	// CounterSize is the size of the message counter carried before each sealed message.
	CounterSize = 8
	// Overhead is the number of bytes a sealed message is longer than its plain text.
	Overhead = CounterSize + box.Overhead

	// HandshakeTimeout bounds the handshake when the connection supports deadlines.
	HandshakeTimeout = 10 * time.Second
)

var (
	helloMagic   = [4]byte{'T', 'B', 'C', 'V'}
	clientPrefix = [16]byte{'C', 'u', 'r', 'v', 'e', 'M', 'E', 'S', 'S', 'A', 'G', 'E', '-', 'C', '2', 'S'}
	serverPrefix = [16]byte{'C', 'u', 'r', 'v', 'e', 'M', 'E', 'S', 'S', 'A', 'G', 'E', '-', 'S', '2', 'C'}
)

// Config is the key material of one peer.
type Config struct {
	Server bool
	// Secret is the own secret key.
	Secret Key
	// Public is the own public key, derived from Secret when zero.
	Public Key
	// ServerKey is the server's public key, required on clients.
	ServerKey Key
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Handshake runs the handshake over conn and returns the message session.
// Both peers prove their long-term keys and agree on transient keys,
// messages are sealed with the transient keys so every connection has its own key.
func (c *Config) Handshake(conn io.ReadWriter) (sess *Session, err error) {
	if d, ok := conn.(deadliner); ok {
		d.SetDeadline(time.Now().Add(HandshakeTimeout))
		defer d.SetDeadline(time.Time{})
	}
	var zero Key
	if c.Public == zero {
		if c.Public, err = PublicFromSecret(c.Secret); err != nil {
			return nil, ErrBadKey
		}
	}
	if c.Server {
		sess, err = c.serverHandshake(conn)
	} else {
		if c.ServerKey == zero {
			return nil, ErrBadKey
		}
		sess, err = c.clientHandshake(conn)
	}
	if err != nil && log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "curve").
			WithFields(log.Fields{"server": c.Server, "error": err}).
			Debug("handshake")
	}
	return
}

func (c *Config) clientHandshake(conn io.ReadWriter) (*Session, error) {
	tpub, tsec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	if _, err = rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	hello := make([]byte, 0, helloSize)
	hello = append(hello, helloMagic[:]...)
	hello = append(hello, version)
	hello = append(hello, c.Public[:]...)
	hello = append(hello, nonce[:]...)
	serverKey, secret := [KeySize]byte(c.ServerKey), [KeySize]byte(c.Secret)
	hello = box.Seal(hello, tpub[:], &nonce, &serverKey, &secret)
	if _, err = conn.Write(hello); err != nil {
		return nil, err
	}

	welcome := make([]byte, welcomeSize)
	if _, err = io.ReadFull(conn, welcome); err != nil {
		return nil, err
	}
	var snonce [nonceLen]byte
	copy(snonce[:], welcome[:nonceLen])
	plain, ok := box.Open(nil, welcome[nonceLen:], &snonce, &serverKey, &secret)
	if !ok || !bytes.Equal(plain[KeySize:], nonce[:]) {
		return nil, ErrHandshake
	}
	var peer [KeySize]byte
	copy(peer[:], plain[:KeySize])

	return newSession(&peer, tsec, clientPrefix, serverPrefix), nil
}

func (c *Config) serverHandshake(conn io.ReadWriter) (*Session, error) {
	hello := make([]byte, helloSize)
	if _, err := io.ReadFull(conn, hello); err != nil {
		return nil, err
	}
	if !bytes.Equal(hello[:len(helloMagic)], helloMagic[:]) || hello[len(helloMagic)] != version {
		return nil, ErrHandshake
	}
	var (
		clientKey [KeySize]byte
		nonce     [nonceLen]byte
	)
	off := len(helloMagic) + 1
	copy(clientKey[:], hello[off:off+KeySize])
	off += KeySize
	copy(nonce[:], hello[off:off+nonceLen])
	off += nonceLen

	secret := [KeySize]byte(c.Secret)
	plain, ok := box.Open(nil, hello[off:], &nonce, &clientKey, &secret)
	if !ok {
		return nil, ErrHandshake
	}
	var peer [KeySize]byte
	copy(peer[:], plain)

	tpub, tsec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	var snonce [nonceLen]byte
	if _, err = rand.Read(snonce[:]); err != nil {
		return nil, err
	}
	body := make([]byte, 0, KeySize+nonceLen)
	body = append(body, tpub[:]...)
	body = append(body, nonce[:]...)
	welcome := make([]byte, 0, welcomeSize)
	welcome = append(welcome, snonce[:]...)
	welcome = box.Seal(welcome, body, &snonce, &clientKey, &secret)
	if _, err = conn.Write(welcome); err != nil {
		return nil, err
	}

	return newSession(&peer, tsec, serverPrefix, clientPrefix), nil
}

// Session seals and opens messages of one connection,
// Seal and Open may be used by different goroutines.
type Session struct {
	shared     [KeySize]byte
	sendPrefix [16]byte
	recvPrefix [16]byte
	sendNonce  uint64
	recvNonce  uint64
}

// newSession keys a session with the peer's transient public key and the own transient secret.
func newSession(peer, secret *[KeySize]byte, sendPrefix, recvPrefix [16]byte) *Session {
	s := &Session{sendPrefix: sendPrefix, recvPrefix: recvPrefix}
	box.Precompute(&s.shared, peer, secret)
	for i := range secret {
		secret[i] = 0
	}
	return s
}

// Overhead returns the sealed size increase.
func (s *Session) Overhead() int {
	return Overhead
}

// Seal appends the counter and the sealed msg to dst.
func (s *Session) Seal(dst, msg []byte) []byte {
	s.sendNonce++
	var nonce [nonceLen]byte
	copy(nonce[:], s.sendPrefix[:])
	binary.BigEndian.PutUint64(nonce[16:], s.sendNonce)
	dst = append(dst, nonce[16:]...)
	return box.SealAfterPrecomputation(dst, msg, &nonce, &s.shared)
}

// Open appends the plain text of sealed to dst,
// counters must strictly increase.
func (s *Session) Open(dst, sealed []byte) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, ErrDecrypt
	}
	counter := binary.BigEndian.Uint64(sealed)
	if counter <= s.recvNonce {
		return nil, ErrDecrypt
	}
	var nonce [nonceLen]byte
	copy(nonce[:], s.recvPrefix[:])
	copy(nonce[16:], sealed[:CounterSize])
	out, ok := box.OpenAfterPrecomputation(dst, sealed[CounterSize:], &nonce, &s.shared)
	if !ok {
		return nil, ErrDecrypt
	}
	s.recvNonce = counter
	return out, nil
}
