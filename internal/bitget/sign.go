package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// SignedRequest is a single-use authenticated request. The signature binds
// the timestamp, so a SignedRequest must never be cached or replayed; the
// exchange rejects timestamps outside its receive window.
type SignedRequest struct {
	TimestampMillis int64
	Method          string
	Path            string
	BodyJSON        string
	Signature       string
}

// Sign derives the Bitget v2 request signature:
// base64(HMAC-SHA256(secret, timestamp || method || path || body)).
//
// method is the literal HTTP verb ("POST"); path is the request path with
// its leading slash and without the query string; body is the exact JSON
// string that will be transmitted. Any re-serialization that reorders keys
// or changes whitespace invalidates the signature. Pure function:
// identical inputs always produce the identical signature.
func Sign(secret string, timestampMillis int64, method, path, body string) string {
	message := strconv.FormatInt(timestampMillis, 10) + method + path + body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// NewSignedRequest binds a body to a timestamp and signature in one step.
func NewSignedRequest(secret string, timestampMillis int64, method, path, body string) SignedRequest {
	return SignedRequest{
		TimestampMillis: timestampMillis,
		Method:          method,
		Path:            path,
		BodyJSON:        body,
		Signature:       Sign(secret, timestampMillis, method, path, body),
	}
}
