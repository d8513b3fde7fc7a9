package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

// Signer builds OAuth 1.0a HMAC-SHA1 Authorization headers. Nonce and clock
// are injectable so a signature is reproducible under test.
type Signer struct {
	creds Credentials
	nonce func() (string, error)
	now   func() time.Time
}

type Option func(*Signer)

func WithNonce(fn func() (string, error)) Option {
	return func(s *Signer) { s.nonce = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Signer) { s.now = fn }
}

func NewSigner(creds Credentials, opts ...Option) *Signer {
	s := &Signer{
		creds: creds,
		nonce: func() (string, error) {
			return gonanoid.Generate(nonceAlphabet, 32)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorizationHeader signs method+rawURL and returns the full header value.
// rawURL must not carry a query string. Request bodies never participate in
// the base string, only the oauth_* protocol parameters do.
func (s *Signer) AuthorizationHeader(method, rawURL string) (string, error) {
	nonce, err := s.nonce()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	params := map[string]string{
		"oauth_consumer_key":     s.creds.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_token":            s.creds.Token,
		"oauth_version":          "1.0",
	}
	params["oauth_signature"] = s.sign(method, rawURL, params)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, PercentEncode(k), PercentEncode(params[k])))
	}

	return "OAuth " + strings.Join(pairs, ", "), nil
}

func (s *Signer) sign(method, rawURL string, params map[string]string) string {
	base := SignatureBase(method, rawURL, params)
	key := PercentEncode(s.creds.ConsumerSecret) + "&" + PercentEncode(s.creds.TokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignatureBase builds METHOD&encode(url)&encode(sorted params).
func SignatureBase(method, rawURL string, params map[string]string) string {
	encoded := make([]string, 0, len(params))
	for k, v := range params {
		encoded = append(encoded, PercentEncode(k)+"="+PercentEncode(v))
	}
	sort.Strings(encoded)

	paramString := strings.Join(encoded, "&")
	return strings.ToUpper(method) + "&" + PercentEncode(rawURL) + "&" + PercentEncode(paramString)
}

// PercentEncode escapes per RFC 3986: only A-Za-z0-9 and -._~ pass through.
// Stricter than url.QueryEscape, which providers reject (space must be %20,
// and !*'() must be escaped).
func PercentEncode(input string) string {
	var b strings.Builder
	for _, c := range []byte(input) {
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~'
}
