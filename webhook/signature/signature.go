package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/* Verifier for provider-signed webhook deliveries.
 * The signature header carries a unix timestamp and one or more
 * versioned signature candidates: "t=1700000000,v1=<hex>[,v0=<hex>]"
 * The signed content is "{t}.{raw body}" and candidates are compared
 * in constant time.
 */

// DefaultTolerance bounds the replay window for a captured request.
const DefaultTolerance = 300 * time.Second

// Result carries the outcome of a verification attempt.
// Timestamp and TimestampAge are diagnostic only; a Result never
// carries identity beyond pass/fail.
type Result struct {
	Valid        bool
	Timestamp    int64
	TimestampAge int64
	Err          string
}

/* Header keys: "t" is the timestamp, any key starting with "v" is a
 * signature candidate. Multiple candidates allow signature-version
 * rotation: the provider signs with old and new secrets at once.
 */
type parsedHeader struct {
	timestamp  int64
	hasStamp   bool
	candidates []string
}

func parseHeader(header string) parsedHeader {
	var ph parsedHeader
	for _, element := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(element), "=")
		if !found {
			continue
		}
		if key == "t" {
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			ph.timestamp = ts
			ph.hasStamp = true
		} else if strings.HasPrefix(key, "v") {
			ph.candidates = append(ph.candidates, value)
		}
	}
	return ph
}

// Verify checks a signature header against the raw request body.
// It never panics on malformed input: the header is fully attacker
// controlled, so every parse failure maps to an invalid Result.
func Verify(rawBody []byte, header, secret string, tolerance time.Duration) Result {
	return verifyAt(rawBody, header, secret, tolerance, time.Now())
}

// verifyAt is the clock-injected core of Verify, shared with tests.
func verifyAt(rawBody []byte, header, secret string, tolerance time.Duration, now time.Time) Result {
	if header == "" || secret == "" {
		return Result{Valid: false, Err: "missing signature or secret"}
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	ph := parseHeader(header)
	if !ph.hasStamp {
		return Result{Valid: false, Err: "missing timestamp"}
	}

	age := now.Unix() - ph.timestamp
	if age > int64(tolerance.Seconds()) || -age > int64(tolerance.Seconds()) {
		return Result{
			Valid:        false,
			Timestamp:    ph.timestamp,
			TimestampAge: age,
			Err:          "timestamp outside tolerance",
		}
	}

	expected := computeMAC(secret, ph.timestamp, rawBody)

	// Check every candidate; no short-circuit on the comparison itself.
	valid := false
	for _, candidate := range ph.candidates {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare(sig, expected) == 1 {
			valid = true
		}
	}
	if !valid {
		return Result{
			Valid:        false,
			Timestamp:    ph.timestamp,
			TimestampAge: age,
			Err:          "no matching signature",
		}
	}

	return Result{Valid: true, Timestamp: ph.timestamp, TimestampAge: age}
}

// Sign builds a signature header for the given body and timestamp.
// Used by local tooling and tests; the signed content matches Verify.
func Sign(rawBody []byte, secret string, timestamp time.Time) string {
	t := timestamp.Unix()
	return fmt.Sprintf("t=%d,v1=%s", t, hex.EncodeToString(computeMAC(secret, t, rawBody)))
}

func computeMAC(secret string, timestamp int64, rawBody []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(rawBody)
	return mac.Sum(nil)
}
