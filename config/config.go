package config

import "path/filepath"

// Config is the explicit configuration object for dunner. It is built once
// at process start and passed into clients and workflows; no call site
// probes the environment on its own.
type Config struct {
	CRM       CRMConfig      `mapstructure:"crm"`
	Secondary CRMConfig      `mapstructure:"secondary_crm"`
	Letters   LettersConfig  `mapstructure:"letters"`
	Chat      ChatConfig     `mapstructure:"chat"`
	Campaign  CampaignConfig `mapstructure:"campaign"`
	Fields    FieldsConfig   `mapstructure:"fields"`
	Queries   QueriesConfig  `mapstructure:"queries"`
	Pacing    PacingConfig   `mapstructure:"pacing"`
	Assign    AssignConfig   `mapstructure:"assign"`
	Handoff   HandoffConfig  `mapstructure:"handoff"`

	RosterPath string `mapstructure:"roster_path"` // sales-rep roster YAML
}

// CRMConfig configures one CRM account. Secondary is the lot-data account
// used for cross-account lookups; it is optional unless a workflow needs it.
type CRMConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // per-request HTTP timeout (default: 60)
}

// LettersConfig configures the print-mail vendor plus the sender stamped
// on every letter. FromContactID names a vendor-side contact record; when
// it is empty the inline from_* block is sent instead.
type LettersConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`

	FromContactID  string `mapstructure:"from_contact_id"`
	FromName       string `mapstructure:"from_name"`
	FromAddress    string `mapstructure:"from_address"`
	FromCity       string `mapstructure:"from_city"`
	FromProvince   string `mapstructure:"from_province"`
	FromPostalCode string `mapstructure:"from_postal_code"`
	FromCountry    string `mapstructure:"from_country"`
}

// ChatConfig configures the chat-notification API. Fire-and-forget; a
// missing token disables notifications rather than failing a run, except
// for workflows that exist to notify.
type ChatConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
	Channel string `mapstructure:"channel"`
}

// CampaignConfig carries the remote stage identifiers and the per-round
// letter templates. Defaults match the production CRM account; they are
// configurable so a sandbox account can rehearse a run.
type CampaignConfig struct {
	Stages    StageIDs    `mapstructure:"stages"`
	Templates TemplateIDs `mapstructure:"templates"`
}

// StageIDs maps campaign stages to remote status ids. Unpaid through
// Stage3 are opportunity statuses; Error is a lead status.
type StageIDs struct {
	Unpaid string `mapstructure:"unpaid"`
	Stage1 string `mapstructure:"stage1"`
	Stage2 string `mapstructure:"stage2"`
	Stage3 string `mapstructure:"stage3"`
	Hold   string `mapstructure:"hold"`
	Error  string `mapstructure:"error"`
}

// TemplateIDs maps mail rounds to vendor letter templates.
type TemplateIDs struct {
	Round1 string `mapstructure:"round1"`
	Round2 string `mapstructure:"round2"`
	Round3 string `mapstructure:"round3"`
}

// FieldsConfig maps semantic field names to CRM custom-field ids. The
// field registry is built from this once and validated against the remote
// schema at workflow start.
type FieldsConfig struct {
	// Opportunity fields
	MailerDates      string `mapstructure:"mailer_dates"`
	Template         string `mapstructure:"template"`
	CitationNumber   string `mapstructure:"citation_number"`
	CitationDate     string `mapstructure:"citation_date"`
	CitationTime     string `mapstructure:"citation_time"`
	CitationImageURL string `mapstructure:"citation_image_url"`
	FineAmount       string `mapstructure:"fine_amount"`
	ServiceFee       string `mapstructure:"service_fee"`
	LotAddress       string `mapstructure:"lot_address"`
	LotUID           string `mapstructure:"lot_uid"`

	// Lead fields
	LastMailDate string `mapstructure:"last_mail_date"`
	MailedToday  string `mapstructure:"mailed_today"`
	SalesOwner   string `mapstructure:"sales_owner"`

	// Secondary-account lead field correlating the two accounts
	SecondaryLotUID string `mapstructure:"secondary_lot_uid"`

	// Lead fields with no stable id across accounts; the registry
	// resolves these display names against the remote schema at startup.
	LeadNames LeadNameFields `mapstructure:"lead_names"`
}

// LeadNameFields holds lead custom-field display names resolved to ids
// at startup.
type LeadNameFields struct {
	MailingAddress string `mapstructure:"mailing_address"`
	Make           string `mapstructure:"make"`
	Model          string `mapstructure:"model"`
}

// QueriesConfig locates the saved search definitions each workflow posts
// to the CRM search endpoint. Paths are joined onto Dir unless absolute.
type QueriesConfig struct {
	Dir        string `mapstructure:"dir"`
	Rounds     string `mapstructure:"rounds"`
	Holds      string `mapstructure:"holds"`
	Mailers    string `mapstructure:"mailers"`
	Counting   string `mapstructure:"counting"`
	Reservoir  string `mapstructure:"reservoir"`
	Handoff    string `mapstructure:"handoff"`
	MissingLot string `mapstructure:"missing_lot"`
}

// Path joins a query filename onto the configured directory. Absolute
// names are returned untouched.
func (q QueriesConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(q.Dir, name)
}

// PacingConfig tunes the blocking delays of the request pipeline. All of
// it is cooperative politeness on top of the reactive 429 backoff.
type PacingConfig struct {
	RateBufferMS     int     `mapstructure:"rate_buffer_ms"`     // added to every rate-limit wait hint (default: 1000)
	TransientRetryMS int     `mapstructure:"transient_retry_ms"` // sleep before retrying network failures (default: 5000)
	PagesPerSecond   float64 `mapstructure:"pages_per_second"`   // cursor pagination pacing (default: 2)
	RecordDelayMS    int     `mapstructure:"record_delay_ms"`    // fixed delay between records (default: 250)
	MaxAttempts      int     `mapstructure:"max_attempts"`       // retry ceiling per call: 0 = unbounded
}

// AssignConfig configures the lead-assignment workflow.
type AssignConfig struct {
	TargetCount int `mapstructure:"target_count"` // leads to distribute per run (default: 400)
}

// HandoffConfig configures the owner-research handoff workflow: once the
// queue reaches TargetCount, the batch is exported to CSV, attached to an
// email logged under the vendor's lead, and announced in chat.
type HandoffConfig struct {
	TargetCount     int    `mapstructure:"target_count"` // queue depth that triggers a handoff (default: 300)
	VendorLeadID    string `mapstructure:"vendor_lead_id"`
	VendorContactID string `mapstructure:"vendor_contact_id"`
	SenderEmail     string `mapstructure:"sender_email"` // matched against the account's email identities
	SenderName      string `mapstructure:"sender_name"`
	FallbackEmail   string `mapstructure:"fallback_email"` // used when the vendor contact has no address
	EmailSubject    string `mapstructure:"email_subject"`
	OutputDir       string `mapstructure:"output_dir"`   // where run CSVs land (default: ".")
	ChatMention     string `mapstructure:"chat_mention"` // user-group id prefixed to chat posts
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
