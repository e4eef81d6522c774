// Package cache builds Redis clients from connection URLs.
// This is part of the platform layer and contains no business logic.
package cache

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ParseRedisURL parses a redis:// or rediss:// URL. tlsInsecure disables
// certificate verification, enabling TLS if the URL did not.
func ParseRedisURL(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewRedisClient returns a client for redisURL.
func NewRedisClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := ParseRedisURL(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
