package erp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Config holds configuration for the ERP catalog API
type Config struct {
	// BaseURL is the API root, e.g. https://erp.example.com/api/v1
	BaseURL string
	// Token is sent as a bearer token on every request
	Token string
	// PageSize is the number of records requested per page
	PageSize int
	// Timeout bounds a single page request
	Timeout time.Duration
	// RateLimitRPS caps requests per second; zero disables limiting
	RateLimitRPS float64
	// RateLimitBurst is the number of requests allowed at once
	RateLimitBurst int
	// Charset of response bodies when the server does not declare one
	Charset string
}

const (
	defaultPageSize = 500
	maxPageSize     = 5000
	defaultTimeout  = 30 * time.Second
)

// Errors for ERP configuration
var (
	ErrConfigMissingBaseURL = errors.New("erp: base url is required")
	ErrUnsupportedCharset   = errors.New("erp: unsupported charset")
)

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	c.PageSize = min(c.PageSize, maxPageSize)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}
	if _, err := charsetDecoder(c.Charset); err != nil {
		return err
	}
	return nil
}

// charsetDecoder returns the decoder for a charset name; nil means the body is already UTF-8
func charsetDecoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCharset, name)
	}
}
