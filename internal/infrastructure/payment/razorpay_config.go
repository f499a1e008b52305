package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/shantivaas/rental/internal/infrastructure/config"
)

const (
	razorpayAPIBaseURL     = "https://api.razorpay.com/v1"
	razorpayDefaultTimeout = 30 * time.Second
)

// Errors for configuration validation
var (
	ErrRazorpayMissingKeyID         = errors.New("razorpay: missing key id")
	ErrRazorpayMissingKeySecret     = errors.New("razorpay: missing key secret")
	ErrRazorpayMissingWebhookSecret = errors.New("razorpay: missing webhook secret")
)

// RazorpayConfig contains credentials for the Razorpay Orders API
type RazorpayConfig struct {
	// KeyID is the public key, also handed to the checkout widget
	KeyID string
	// KeySecret authenticates API calls and signs checkout results
	KeySecret string
	// WebhookSecret signs webhook bodies; it differs from KeySecret
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// NewRazorpayConfig maps application settings onto adapter settings
func NewRazorpayConfig(cfg config.RazorpayConfig) *RazorpayConfig {
	c := &RazorpayConfig{
		KeyID:         cfg.KeyID,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:       cfg.Timeout,
	}
	if c.BaseURL == "" {
		c.BaseURL = razorpayAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = razorpayDefaultTimeout
	}
	return c
}

// Validate validates the configuration
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" {
		return ErrRazorpayMissingKeyID
	}
	if c.KeySecret == "" {
		return ErrRazorpayMissingKeySecret
	}
	if c.WebhookSecret == "" {
		return ErrRazorpayMissingWebhookSecret
	}
	return nil
}
