package spark

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SignURL builds the authenticated connection URL for the inference endpoint.
// The upstream service recomputes the same HMAC from the query parameters, so
// the canonical string below must match it byte for byte:
//
//	host: <host>
//	date: <RFC1123 GMT date>
//	GET <path> HTTP/1.1
//
// The HMAC-SHA256 digest of that string is base64 encoded, wrapped in an
// authorization header value, and that value is base64 encoded again before
// being appended as a query parameter alongside date and host.
func SignURL(endpoint, apiKey, apiSecret string, now time.Time) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint url: %w", err)
	}

	date := now.UTC().Format(http.TimeFormat)

	signingString := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", u.Host, date, u.Path)

	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(signingString))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authOrigin := fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		apiKey, signature,
	)
	authorization := base64.StdEncoding.EncodeToString([]byte(authOrigin))

	query := url.Values{}
	query.Set("authorization", authorization)
	query.Set("date", date)
	query.Set("host", u.Host)

	return endpoint + "?" + query.Encode(), nil
}
