package clearance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/clearance/pkg/browser"
	"github.com/jmylchreest/clearance/pkg/cookies"
	"github.com/jmylchreest/clearance/pkg/credential"
	"github.com/jmylchreest/clearance/pkg/fetcher"
)

// DefaultTimeout bounds each wait inside a challenge acquisition attempt.
const DefaultTimeout = 16 * time.Second

// ErrInvalidConfig is returned by New when Config fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all client configuration.
type Config struct {
	// Browser settings
	//
	// Headless must stay false against real challenge pages: the challenge
	// script detects headless Chrome and never clears.
	Headless             bool
	SkipChromiumDownload bool   // Use ChromiumPath instead of discovering a browser
	ChromiumPath         string `validate:"required_if=SkipChromiumDownload true"`
	Display              string `validate:"omitempty,contains=:"` // e.g. ":10.0" for Xvfb

	// WaitForNetworkIdle is accepted for compatibility. It currently has no
	// effect: acquisition always races network idle against the marker.
	WaitForNetworkIdle bool

	// Timeout bounds each wait of an acquisition attempt. Zero means
	// DefaultTimeout.
	Timeout time.Duration `validate:"gte=0"`

	// Fetch settings
	UserAgent   string // Sent on the direct fetch; replaced by the browser's on replay
	MaxBodySize int    `validate:"gte=0"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   DefaultTimeout,
		UserAgent: fetcher.DefaultUserAgent,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = fetcher.DefaultUserAgent
	}
	return c
}

// Validate checks field constraints.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Field()+" "+formatValidationError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required_if":
		return fmt.Sprintf("is required when %s", strings.Replace(e.Param(), " ", " is ", 1))
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "contains":
		return fmt.Sprintf("must contain %q", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// browserConfig maps the client settings onto the Chrome launcher. The
// configured path is only used when discovery is skipped.
func (c Config) browserConfig() browser.Config {
	cfg := browser.Config{
		Headless: c.Headless,
		Display:  c.Display,
		Stealth:  true,
	}
	if c.SkipChromiumDownload {
		cfg.ExecPath = c.ChromiumPath
	}
	return cfg
}

// Option overrides a collaborator of the Client.
type Option func(*Client)

// WithFetcher sets the fetcher used for direct and credentialed requests.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithLauncher sets how browser sessions are started.
func WithLauncher(l browser.Launcher) Option {
	return func(c *Client) {
		c.launcher = l
	}
}

// WithStore sets the credential cache.
func WithStore(s *credential.Store) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithJar sets the jar harvested cookies are kept in.
func WithJar(j *cookies.Jar) Option {
	return func(c *Client) {
		c.jar = j
	}
}
