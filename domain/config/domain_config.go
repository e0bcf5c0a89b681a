package config

import (
	"fmt"
	"time"
)

// ReadPolicy decides what a successful read does to a note.
type ReadPolicy string

const (
	// ReadOnce deletes the note atomically with the first successful read.
	ReadOnce ReadPolicy = "once"
	// ReadUntilExpiry allows any number of reads until the TTL elapses.
	ReadUntilExpiry ReadPolicy = "until_expiry"
)

// ParseReadPolicy validates a configured read policy name
func ParseReadPolicy(s string) (ReadPolicy, error) {
	switch ReadPolicy(s) {
	case ReadOnce, ReadUntilExpiry:
		return ReadPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown read policy %q (want %q or %q)", s, ReadOnce, ReadUntilExpiry)
	}
}

// DomainConfig holds all configurable note rules
type DomainConfig struct {
	// TTL constraints
	DefaultTTL time.Duration
	MaxTTL     time.Duration

	// Content constraints
	MaxContentBytes int

	ReadPolicy ReadPolicy
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultTTL:      15 * time.Minute,
		MaxTTL:          24 * time.Hour,
		MaxContentBytes: 64 * 1024,
		ReadPolicy:      ReadOnce,
	}
}

// Validate checks the rules are self-consistent
func (c *DomainConfig) Validate() error {
	if c.DefaultTTL < time.Second {
		return fmt.Errorf("default TTL must be at least one second, got %s", c.DefaultTTL)
	}
	if c.MaxTTL < time.Second {
		return fmt.Errorf("max TTL must be at least one second, got %s", c.MaxTTL)
	}
	if c.DefaultTTL > c.MaxTTL {
		return fmt.Errorf("default TTL %s exceeds max TTL %s", c.DefaultTTL, c.MaxTTL)
	}
	if c.MaxContentBytes <= 0 {
		return fmt.Errorf("max content bytes must be positive, got %d", c.MaxContentBytes)
	}
	if _, err := ParseReadPolicy(string(c.ReadPolicy)); err != nil {
		return err
	}
	return nil
}

// ResolveTTL applies the default when ttlSeconds is nil and enforces bounds.
func (c *DomainConfig) ResolveTTL(ttlSeconds *int) (time.Duration, error) {
	if ttlSeconds == nil {
		return c.DefaultTTL, nil
	}
	if *ttlSeconds < 1 {
		return 0, fmt.Errorf("ttl_seconds must be at least 1")
	}
	// Compare in seconds so huge values cannot wrap the Duration product
	maxSeconds := int64(c.MaxTTL / time.Second)
	if int64(*ttlSeconds) > maxSeconds {
		return 0, fmt.Errorf("ttl_seconds must not exceed %d", maxSeconds)
	}
	return time.Duration(*ttlSeconds) * time.Second, nil
}
