package xredis

import (
	"time"
)

// Config addresses a redis server by Addr or by a redis:// or rediss:// URL. Explicit
// credential and DB fields win over the ones in the URL. Expiration is the TTL of cache
// entries written through the connection; ClientName defaults to "shellstate".
type Config struct {
	Addr                  string        `conf:"addr" yaml:"addr" json:"addr"`
	URL                   string        `conf:"url" yaml:"url" json:"url"`
	Username              string        `conf:"username" yaml:"username" json:"username"`
	Password              string        `conf:"password" yaml:"password" json:"password"`
	DB                    *int          `conf:"db" yaml:"db" json:"db"`
	TLS                   bool          `conf:"tls" yaml:"tls" json:"tls"`
	TLSInsecureSkipVerify bool          `conf:"tls_insecure_skip_verify" yaml:"tls_insecure_skip_verify" json:"tls_insecure_skip_verify"`
	Expiration            time.Duration `conf:"expiration" yaml:"expiration" json:"expiration"`
	DialTimeout           time.Duration `conf:"dial_timeout" yaml:"dial_timeout" json:"dial_timeout"`
	ClientName            string        `conf:"client_name" yaml:"client_name" json:"client_name"`
}

// Validate checks cfg without connecting.
func (c Config) Validate() error {
	_, err := c.Options()
	return err
}
