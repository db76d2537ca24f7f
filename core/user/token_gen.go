package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	salt = []byte("gestion-planeacion.core.user.token_gen")

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator makes and verifies password reset tokens.
// A token is invalidated by any password change or login of its user.
type tokenGenerator struct {
	secretKey []byte
	timeout   time.Duration
	nowFunc   func() time.Time // mockable
}

func newTokenGenerator(secretKey string, timeout time.Duration) *tokenGenerator {
	return &tokenGenerator{
		secretKey: []byte(secretKey),
		timeout:   timeout,
		nowFunc:   time.Now,
	}
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeToken generates a password reset token for a given User.
func (tg *tokenGenerator) makeToken(usr User) (string, error) {
	return tg.makeTokenWithTimestamp(usr, numDaysSince2001(tg.nowFunc()))
}

// verifyToken checks that a password reset token for a given User is valid.
func (tg *tokenGenerator) verifyToken(usr User, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := tg.makeTokenWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(tg.nowFunc()) - ts) > int(tg.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (tg *tokenGenerator) makeTokenWithTimestamp(usr User, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := tg.sign(hashValue(usr, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func (tg *tokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, salt...), tg.secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if usr.LastLogin != nil {
		val.WriteString(usr.LastLogin.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
