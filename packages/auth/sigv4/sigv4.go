// Package sigv4 signs calls with AWS Signature Version 4.
package sigv4

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

const (
	algorithm = "AWS4-HMAC-SHA256"

	HeaderDate          = "X-Amz-Date"
	HeaderContentSHA256 = "X-Amz-Content-Sha256"
)

// Hook is a pre-send hook signing calls that select aws_sigv4 auth
type Hook struct {
	now func() time.Time
}

// NewHook creates a signing hook
func NewHook() *Hook {
	return &Hook{now: time.Now}
}

func (h *Hook) ID() string { return hithttp.AuthAWS }

// OnPreSend implements http.PreSendHook
func (h *Hook) OnPreSend(_ context.Context, call *hithttp.Call) error {
	cfg := call.Config
	if cfg.Auth != hithttp.AuthAWS || cfg.AWS == nil {
		return nil
	}

	body, err := readBody(call.Request)
	if err != nil {
		return &hithttp.AuthenticationError{Strategy: hithttp.AuthAWS, URL: call.Request.URL.String(), Err: err}
	}
	return Sign(call.Request, body, *cfg.AWS, h.now())
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be re-read for signing")
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Sign sets the Authorization, X-Amz-Date and X-Amz-Content-Sha256 headers
// on req.
func Sign(req *http.Request, body []byte, creds hithttp.AWSAuthCredentials, at time.Time) error {
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return &hithttp.AuthenticationError{
			Strategy: hithttp.AuthAWS,
			URL:      req.URL.String(),
			Err:      errors.New("access key and secret key are required"),
		}
	}

	t := at.UTC()
	amzDate := t.Format("20060102T150405Z")
	dateStamp := t.Format("20060102")
	payloadHash := sha256Hex(body)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	signedHeaders := "host;x-amz-content-sha256;x-amz-date"
	canonicalHeaders := fmt.Sprintf("host:%s\nx-amz-content-sha256:%s\nx-amz-date:%s\n", host, payloadHash, amzDate)

	canonicalURI := req.URL.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}

	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI,
		canonicalQueryString(req.URL.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, creds.Region, creds.Service)
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := signatureKey(creds.SecretKey, dateStamp, creds.Region, creds.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	req.Header.Set(HeaderDate, amzDate)
	req.Header.Set(HeaderContentSHA256, payloadHash)
	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, creds.AccessKey, credentialScope, signedHeaders, signature))
	return nil
}

func canonicalQueryString(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			pairs = append(pairs, uriEncode(k)+"="+uriEncode(v))
		}
	}
	return strings.Join(pairs, "&")
}

// uriEncode escapes like QueryEscape but with %20 for spaces, as SigV4 requires
func uriEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func signatureKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}
