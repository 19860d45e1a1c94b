package auth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"regexp"
	"strings"

	"olog/internal/logging"
)

// ErrDigestUnsupported indicates the server offered no algorithm this client implements.
var ErrDigestUnsupported = errors.New("server offered no supported Digest algorithm")

// ErrDigestQopUnsupported indicates the server requires a qop this client cannot produce.
var ErrDigestQopUnsupported = errors.New("server requires an unsupported Digest qop")

type digestChallenge struct {
	Realm      string
	Nonce      string
	Opaque     string
	Algorithm  string
	QopOptions []string
}

// DigestRoundTripper answers a Digest challenge (RFC 7616) on behalf of the
// wrapped transport. The request is sent once without credentials; on a
// Digest 401 it is replayed with an Authorization header. Replaying a body
// requires req.GetBody.
type DigestRoundTripper struct {
	Username string
	Password string
	Next     http.RoundTripper
}

func (rt *DigestRoundTripper) next() http.RoundTripper {
	if rt.Next == nil {
		return http.DefaultTransport
	}
	return rt.Next
}

// RoundTrip implements http.RoundTripper.
func (rt *DigestRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.next().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	authHeader := resp.Header.Get("WWW-Authenticate")
	if !strings.HasPrefix(strings.ToLower(authHeader), "digest ") {
		logging.Logf(logging.Debug, "Digest: 401 without a Digest challenge ('%s'), passing it through", authHeader)
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	challenge, err := parseDigestChallenge(authHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Digest challenge '%s': %w", authHeader, err)
	}
	algorithm, qop, err := selectAlgorithmAndQop(challenge)
	if err != nil {
		return nil, err
	}
	logging.Logf(logging.Debug, "Digest: using algorithm %s, qop '%s'", algorithm, qop)

	cnonce, err := generateCNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cnonce: %w", err)
	}
	const nc = uint32(1)
	uri := req.URL.RequestURI()

	var body []byte
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("digest: failed to re-read request body: %w", err)
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("digest: failed to re-read request body: %w", err)
		}
	} else if req.Body != nil && req.Body != http.NoBody {
		return nil, errors.New("digest: request body cannot be replayed without GetBody")
	}

	response, err := calculateDigestResponse(rt.Username, rt.Password, req.Method, uri, body,
		challenge.Realm, challenge.Nonce, algorithm, qop, nc, cnonce)
	if err != nil {
		return nil, err
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", formatDigestAuthorization(rt.Username, challenge, uri, algorithm, qop, nc, cnonce, response))
	if req.GetBody != nil {
		if authed.Body, err = req.GetBody(); err != nil {
			return nil, fmt.Errorf("digest: failed to re-read request body: %w", err)
		}
	}
	return rt.next().RoundTrip(authed)
}

// selectAlgorithmAndQop prefers SHA-256 and auth-int when offered.
func selectAlgorithmAndQop(c *digestChallenge) (string, string, error) {
	var algorithm string
	switch strings.ToUpper(c.Algorithm) {
	case "SHA-256-SESS":
		algorithm = "SHA-256-sess"
	case "SHA-256":
		algorithm = "SHA-256"
	case "MD5-SESS":
		algorithm = "MD5-sess"
	case "MD5", "":
		algorithm = "MD5"
	default:
		return "", "", fmt.Errorf("%w: server offered '%s'", ErrDigestUnsupported, c.Algorithm)
	}

	var qop string
	for _, offered := range c.QopOptions {
		if offered == "auth-int" {
			qop = "auth-int"
			break
		}
		if offered == "auth" {
			qop = "auth"
		}
	}
	if len(c.QopOptions) > 0 && qop == "" {
		return "", "", fmt.Errorf("%w: server offered '%s'", ErrDigestQopUnsupported, strings.Join(c.QopOptions, ","))
	}
	return algorithm, qop, nil
}

var digestParamRegex = regexp.MustCompile(`([a-zA-Z0-9_-]+)\s*=\s*(?:"([^"]*)"|([^",\s]+))`)

func parseDigestChallenge(header string) (*digestChallenge, error) {
	const prefix = "digest "
	if !strings.HasPrefix(strings.ToLower(header), prefix) {
		return nil, fmt.Errorf("invalid Digest header prefix: %s", header)
	}
	matches := digestParamRegex.FindAllStringSubmatch(header[len(prefix):], -1)
	if matches == nil {
		return nil, errors.New("no parameters in Digest challenge")
	}

	params := make(map[string]string, len(matches))
	for _, m := range matches {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		params[strings.ToLower(m[1])] = value
	}

	c := &digestChallenge{
		Realm:     params["realm"],
		Nonce:     params["nonce"],
		Opaque:    params["opaque"],
		Algorithm: params["algorithm"],
	}
	for _, qop := range strings.Split(params["qop"], ",") {
		qop = strings.ToLower(strings.TrimSpace(qop))
		if qop != "" {
			c.QopOptions = append(c.QopOptions, qop)
		}
	}
	if c.Realm == "" || c.Nonce == "" {
		return nil, errors.New("missing required Digest parameters (realm or nonce)")
	}
	return c, nil
}

func generateCNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hexDigest(hasher hash.Hash, data string) string {
	hasher.Reset()
	_, _ = hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

func calculateDigestResponse(
	username, password, method, uri string, body []byte,
	realm, nonce, algorithm, qop string,
	nc uint32, cnonce string,
) (string, error) {
	var hasher hash.Hash
	upper := strings.ToUpper(algorithm)
	switch upper {
	case "MD5", "MD5-SESS":
		hasher = md5.New()
	case "SHA-256", "SHA-256-SESS":
		hasher = sha256.New()
	default:
		return "", fmt.Errorf("%w: %s", ErrDigestUnsupported, algorithm)
	}

	ha1 := hexDigest(hasher, username+":"+realm+":"+password)
	if strings.HasSuffix(upper, "-SESS") {
		ha1 = hexDigest(hasher, ha1+":"+nonce+":"+cnonce)
	}

	ha2 := hexDigest(hasher, method+":"+uri)
	if qop == "auth-int" {
		hasher.Reset()
		_, _ = hasher.Write(body)
		ha2 = hexDigest(hasher, method+":"+uri+":"+hex.EncodeToString(hasher.Sum(nil)))
	}

	if qop == "" {
		return hexDigest(hasher, ha1+":"+nonce+":"+ha2), nil
	}
	return hexDigest(hasher, fmt.Sprintf("%s:%s:%08x:%s:%s:%s", ha1, nonce, nc, cnonce, qop, ha2)), nil
}

func formatDigestAuthorization(username string, c *digestChallenge, uri, algorithm, qop string, nc uint32, cnonce, response string) string {
	parts := []string{
		fmt.Sprintf(`username="%s"`, username),
		fmt.Sprintf(`realm="%s"`, c.Realm),
		fmt.Sprintf(`nonce="%s"`, c.Nonce),
		fmt.Sprintf(`uri="%s"`, uri),
		fmt.Sprintf(`response="%s"`, response),
		"algorithm=" + algorithm,
	}
	if c.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, c.Opaque))
	}
	if qop != "" {
		parts = append(parts, "qop="+qop, fmt.Sprintf("nc=%08x", nc), fmt.Sprintf(`cnonce="%s"`, cnonce))
	}
	return "Digest " + strings.Join(parts, ", ")
}
