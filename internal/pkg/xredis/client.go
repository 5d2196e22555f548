package xredis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultClientName  = "shellstate"
)

var (
	// ErrNoAddress is returned when neither Addr nor URL is set.
	ErrNoAddress = errors.New("redis addr or url is required")
	// ErrInsecureWithoutTLS is returned when TLSInsecureSkipVerify is set on a plain connection.
	ErrInsecureWithoutTLS = errors.New("tls_insecure_skip_verify requires tls=true or a rediss:// url")
)

// NewClient builds a client from cfg and verifies connectivity with a PING
// bounded by the dial timeout.
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return client, nil
}

// Options converts cfg into go-redis options.
func (c Config) Options() (*redis.Options, error) {
	opts := &redis.Options{
		DialTimeout: defaultDialTimeout,
		ClientName:  defaultClientName,
	}

	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}

	if c.ClientName != "" {
		opts.ClientName = c.ClientName
	}

	secure := c.TLS

	switch addr := strings.TrimSpace(c.Addr); {
	case c.URL != "":
		rediss, err := applyURL(opts, c.URL)
		if err != nil {
			return nil, err
		}

		secure = secure || rediss
	case addr != "":
		opts.Addr = addr
	default:
		return nil, ErrNoAddress
	}

	if c.Username != "" {
		opts.Username = c.Username
	}

	if c.Password != "" {
		opts.Password = c.Password
	}

	if c.DB != nil {
		opts.DB = *c.DB
	}

	switch {
	case secure:
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.TLSInsecureSkipVerify, // #nosec G402 -- opt-in through config
		}
	case c.TLSInsecureSkipVerify:
		return nil, ErrInsecureWithoutTLS
	}

	return opts, nil
}

// applyURL fills address, credentials and DB from raw and reports whether it asks for TLS.
func applyURL(opts *redis.Options, raw string) (bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("parse redis url: %w", err)
	}

	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return false, fmt.Errorf("unsupported redis scheme %q, want redis or rediss", u.Scheme)
	}

	if u.Host == "" {
		return false, errors.New("redis url has no host")
	}

	opts.Addr = u.Host

	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}

	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return false, fmt.Errorf("redis url db %q: %w", db, err)
		}

		opts.DB = n
	}

	return u.Scheme == "rediss", nil
}
