// Package authtoken issues and verifies the bearer tokens presented on
// the websocket handshake. No third-party JWT library appears anywhere
// in the example pack, so this is a deliberately minimal HMAC-signed
// token: userID.username.signature, base64url throughout. Swapping in
// a real JWT library at the edge would not change anything downstream
// of Verify.
package authtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("authtoken: invalid token")

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Issue(userID, username string) string {
	payload := encode(userID) + "." + encode(username)
	sig := s.sign(payload)
	return payload + "." + sig
}

// Verify checks the signature and returns (userID, username, ok).
func (s *Signer) Verify(token string) (userID, username string, ok bool) {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return "", "", false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(s.sign(payload)), []byte(parts[2])) {
		return "", "", false
	}
	uid, err1 := decode(parts[0])
	name, err2 := decode(parts[1])
	if err1 != nil || err2 != nil {
		return "", "", false
	}
	return uid, name, true
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func encode(v string) string { return base64.RawURLEncoding.EncodeToString([]byte(v)) }

func decode(v string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
