package payment

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

// ErrInvalidSignature is returned for any malformed, mismatched or stale
// webhook signature.  Handlers reject the event with a client error and
// must not act on its payload.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SignatureTolerance bounds how old a webhook timestamp may be.  Replays
// of captured events outside this window are rejected even when the MAC
// itself is valid.
const SignatureTolerance = 5 * time.Minute

// Sign computes the signature header value for a payload at a given
// timestamp: "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">".  It is
// exported for tests and for local provider stubs.
func Sign(secret string, t time.Time, body []byte) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks a webhook signature header against the payload.
// The comparison is constant time and the embedded timestamp must fall
// within SignatureTolerance of now.
func VerifySignature(secret, header string, body []byte, now time.Time) error {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			ts = n
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return ErrInvalidSignature
	}
	at := time.Unix(ts, 0)
	age := now.Sub(at)
	if age < -SignatureTolerance || age > SignatureTolerance {
		return ErrInvalidSignature
	}
	want := Sign(secret, at, body)
	_, wantSig, _ := strings.Cut(want, ",v1=")
	if !hmac.Equal([]byte(wantSig), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}
