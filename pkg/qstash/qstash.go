package qstash

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SignatureHeader = "Upstash-Signature"
	issuer          = "Upstash"
)

var (
	ErrMissingSignature = errors.New("qstash signature is missing")
	ErrInvalidSignature = errors.New("qstash signature is invalid")
)

type Config struct {
	URL               string        `split_words:"true"`
	Token             string        `split_words:"true"`
	CurrentSigningKey string        `split_words:"true"`
	NextSigningKey    string        `split_words:"true"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.CurrentSigningKey) != "" || strings.TrimSpace(c.NextSigningKey) != ""
}

type Client struct {
	baseURL           string
	token             string
	currentSigningKey string
	nextSigningKey    string
	httpClient        *http.Client
	now               func() time.Time
}

type claims struct {
	Body string `json:"body"`
	jwt.RegisteredClaims
}

func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("qstash signing key is required")
	}

	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL != "" {
		if _, err := url.ParseRequestURI(baseURL); err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		token:             strings.TrimSpace(cfg.Token),
		currentSigningKey: strings.TrimSpace(cfg.CurrentSigningKey),
		nextSigningKey:    strings.TrimSpace(cfg.NextSigningKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Verify checks a delivery signature against the current key, then the next key
// (QStash rotates keys by promoting next to current).
// destination is the public URL QStash called; empty skips the subject check.
func (c *Client) Verify(signature string, body []byte, destination string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}

	var lastErr error
	for _, key := range []string{c.currentSigningKey, c.nextSigningKey} {
		if key == "" {
			continue
		}
		if err := c.verifyWithKey(signature, body, destination, key); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no signing key configured")
	}
	return fmt.Errorf("%w: %v", ErrInvalidSignature, lastErr)
}

func (c *Client) verifyWithKey(signature string, body []byte, destination, key string) error {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(signature, parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(key), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	if destination != "" && parsed.Subject != destination {
		return fmt.Errorf("subject mismatch: %q", parsed.Subject)
	}

	sum := sha256.Sum256(body)
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if strings.TrimRight(parsed.Body, "=") != want {
		return errors.New("body hash mismatch")
	}
	return nil
}

// VerifyRequest reads the signature header of r; body must be the already-read payload.
func (c *Client) VerifyRequest(r *http.Request, body []byte, destination string) error {
	return c.Verify(r.Header.Get(SignatureHeader), body, destination)
}
