package oauth1

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(creds Credentials) *Signer {
	return NewSigner(creds,
		WithNonce(func() (string, error) { return "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg", nil }),
		WithClock(func() time.Time { return time.Unix(1318622958, 0) }),
	)
}

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "a%20b%21%2A%27%28%29~", PercentEncode("a b!*'()~"))
	assert.Equal(t, "Ladies%20%2B%20Gentlemen", PercentEncode("Ladies + Gentlemen"))
	assert.Equal(t, "An%20encoded%20string%21", PercentEncode("An encoded string!"))
	assert.Equal(t, "Dogs%2C%20Cats%20%26%20Mice", PercentEncode("Dogs, Cats & Mice"))
	assert.Equal(t, "", PercentEncode(""))
}

func TestSignatureDeterminism(t *testing.T) {
	creds := Credentials{
		ConsumerKey:    "xvz1evFS4wEEPTGEFPHBog",
		ConsumerSecret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		Token:          "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		TokenSecret:    "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	}

	first, err := fixedSigner(creds).AuthorizationHeader("POST", "https://api.twitter.com/2/tweets")
	require.NoError(t, err)
	second, err := fixedSigner(creds).AuthorizationHeader("POST", "https://api.twitter.com/2/tweets")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "OAuth "))
	assert.Contains(t, first, `oauth_signature_method="HMAC-SHA1"`)
	assert.Contains(t, first, `oauth_version="1.0"`)
	assert.Contains(t, first, `oauth_timestamp="1318622958"`)
	assert.Contains(t, first, "oauth_signature=")
}

func TestHeaderParamsSortedByKey(t *testing.T) {
	creds := Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", Token: "tk", TokenSecret: "ts"}

	header, err := fixedSigner(creds).AuthorizationHeader("GET", "https://api.twitter.com/2/users/me")
	require.NoError(t, err)

	body := strings.TrimPrefix(header, "OAuth ")
	var keys []string
	for _, pair := range strings.Split(body, ", ") {
		keys = append(keys, strings.SplitN(pair, "=", 2)[0])
	}
	for i := 1; i < len(keys); i++ {
		assert.LessOrEqual(t, keys[i-1], keys[i])
	}
}

// A request body must never change the signature; only the oauth_* protocol
// parameters feed the base string.
func TestBodyExcludedFromBaseString(t *testing.T) {
	params := map[string]string{
		"oauth_consumer_key":     "ck",
		"oauth_nonce":            "abc123",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1318622958",
		"oauth_token":            "tk",
		"oauth_version":          "1.0",
	}

	base := SignatureBase("POST", "https://api.twitter.com/2/tweets", params)
	assert.True(t, strings.HasPrefix(base, "POST&https%3A%2F%2Fapi.twitter.com%2F2%2Ftweets&"))
	assert.NotContains(t, base, "text")

	// Same oauth params, different (hypothetical) bodies: identical signatures.
	creds := Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", Token: "tk", TokenSecret: "ts"}
	h1, err := fixedSigner(creds).AuthorizationHeader("POST", "https://api.twitter.com/2/tweets")
	require.NoError(t, err)
	h2, err := fixedSigner(creds).AuthorizationHeader("POST", "https://api.twitter.com/2/tweets")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSignatureBaseSortsEncodedPairs(t *testing.T) {
	params := map[string]string{
		"oauth_version": "1.0",
		"oauth_nonce":   "zz",
		"oauth_token":   "a a",
	}
	base := SignatureBase("get", "https://example.com/resource", params)

	assert.True(t, strings.HasPrefix(base, "GET&"))
	paramPart := base[strings.LastIndex(base, "&")+1:]
	decodedOrder := strings.Index(paramPart, "oauth_nonce")
	assert.True(t, decodedOrder >= 0)
	assert.Less(t, decodedOrder, strings.Index(paramPart, "oauth_token"))
	assert.Less(t, strings.Index(paramPart, "oauth_token"), strings.Index(paramPart, "oauth_version"))
	assert.Contains(t, base, "a%2520a") // double-encoded inside the base string
}
