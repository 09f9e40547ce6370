package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>" for every webhook delivery.
const SignatureHeader = "Payment-Signature"

// DefaultTolerance bounds how old a signed timestamp may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature  = errors.New("signature header missing")
	ErrMalformedHeader   = errors.New("signature header malformed")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrStaleTimestamp    = errors.New("signature timestamp outside tolerance")
)

// Sign computes the v1 signature over "<timestamp>.<body>".
func Sign(secret []byte, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureFor builds a complete header value, used by tests and local tooling.
func SignatureFor(secret []byte, at time.Time, body []byte) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, Sign(secret, ts, body))
}

// Verify checks header against the raw body. Any v1 entry may match so secrets
// can be rotated.
func Verify(secret []byte, header string, body []byte, now time.Time, tolerance time.Duration) error {
	if strings.TrimSpace(header) == "" {
		return ErrMissingSignature
	}
	var (
		timestamp  int64
		haveTime   bool
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrMalformedHeader
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrMalformedHeader
			}
			timestamp, haveTime = ts, true
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if !haveTime || len(signatures) == 0 {
		return ErrMalformedHeader
	}

	expected := []byte(Sign(secret, timestamp, body))
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			matched = true
			break
		}
	}
	if !matched {
		return ErrSignatureMismatch
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleTimestamp
		}
	}
	return nil
}
