package config

import (
	"time"

	"github.com/lotworks/dunner/errors"
)

// Validate checks that the configuration is structurally valid. Credential
// presence is checked per workflow via the Require* helpers, since most
// runs only need a subset of the collaborators.
func (c *Config) Validate() error {
	if c.Pacing.RateBufferMS < 500 {
		return errors.Newf("pacing.rate_buffer_ms must be >= 500 to clear the rate window boundary, got %d", c.Pacing.RateBufferMS)
	}
	if c.Pacing.TransientRetryMS <= 0 {
		return errors.Newf("pacing.transient_retry_ms must be > 0, got %d", c.Pacing.TransientRetryMS)
	}
	if c.Pacing.PagesPerSecond <= 0 {
		return errors.Newf("pacing.pages_per_second must be > 0, got %f", c.Pacing.PagesPerSecond)
	}
	if c.Pacing.RecordDelayMS < 0 {
		return errors.Newf("pacing.record_delay_ms must be >= 0, got %d", c.Pacing.RecordDelayMS)
	}
	if c.Pacing.MaxAttempts < 0 {
		return errors.Newf("pacing.max_attempts must be >= 0 (0 = unbounded), got %d", c.Pacing.MaxAttempts)
	}

	if c.Assign.TargetCount <= 0 {
		return errors.Newf("assign.target_count must be > 0, got %d", c.Assign.TargetCount)
	}
	if c.Handoff.TargetCount <= 0 {
		return errors.Newf("handoff.target_count must be > 0, got %d", c.Handoff.TargetCount)
	}

	return nil
}

// RequireCRM aborts the run when the primary CRM credential is absent.
func (c *Config) RequireCRM() error {
	if c.CRM.APIKey == "" {
		return errors.WithHint(
			errors.NewFatalConfig("crm.api_key is not set"),
			"set DUNNER_CRM_API_KEY or add crm.api_key to dunner.toml")
	}
	if c.CRM.BaseURL == "" {
		return errors.NewFatalConfig("crm.base_url is not set")
	}
	return nil
}

// RequireSecondary aborts when the lot-data account credential is absent.
func (c *Config) RequireSecondary() error {
	if c.Secondary.APIKey == "" {
		return errors.WithHint(
			errors.NewFatalConfig("secondary_crm.api_key is not set"),
			"set DUNNER_SECONDARY_CRM_API_KEY for cross-account lookups")
	}
	return nil
}

// RequireLetters aborts when the mail-vendor credential or the sender is
// absent. The sender is either a vendor-side contact id or an inline
// from block.
func (c *Config) RequireLetters() error {
	if c.Letters.APIKey == "" {
		return errors.WithHint(
			errors.NewFatalConfig("letters.api_key is not set"),
			"set DUNNER_LETTERS_API_KEY or add letters.api_key to dunner.toml")
	}
	if c.Letters.FromContactID == "" && (c.Letters.FromName == "" || c.Letters.FromAddress == "") {
		return errors.NewFatalConfig("letters sender is not set: provide letters.from_contact_id or letters.from_name plus letters.from_address")
	}
	return nil
}

// RequireHandoff aborts when the handoff workflow's vendor addressing is
// absent. The chat token is checked separately; handoff posts are part of
// the workflow's purpose, not ambient notification.
func (c *Config) RequireHandoff() error {
	if c.Handoff.VendorLeadID == "" || c.Handoff.VendorContactID == "" {
		return errors.WithHint(
			errors.NewFatalConfig("handoff.vendor_lead_id and handoff.vendor_contact_id must be set"),
			"the handoff email is logged under the research vendor's lead record")
	}
	return nil
}

// RequireChat aborts when the chat token is absent. Only workflows whose
// purpose is notification call this; elsewhere a missing token just
// disables the post.
func (c *Config) RequireChat() error {
	if c.Chat.Token == "" {
		return errors.WithHint(
			errors.NewFatalConfig("chat.token is not set"),
			"set DUNNER_CHAT_TOKEN or add chat.token to dunner.toml")
	}
	return nil
}

// RateBuffer returns the fixed buffer added to every rate-limit wait hint.
func (p PacingConfig) RateBuffer() time.Duration {
	return time.Duration(p.RateBufferMS) * time.Millisecond
}

// TransientRetry returns the sleep before retrying a network-level failure.
func (p PacingConfig) TransientRetry() time.Duration {
	return time.Duration(p.TransientRetryMS) * time.Millisecond
}

// RecordDelay returns the fixed delay inserted between records.
func (p PacingConfig) RecordDelay() time.Duration {
	return time.Duration(p.RecordDelayMS) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c CRMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
