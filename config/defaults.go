package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
// Stage, template, and field ids default to the production CRM account.
func SetDefaults(v *viper.Viper) {
	// CRM defaults
	v.SetDefault("crm.base_url", "https://api.close.com/api/v1")
	v.SetDefault("crm.timeout_seconds", 60)
	v.SetDefault("secondary_crm.base_url", "https://api.close.com/api/v1")
	v.SetDefault("secondary_crm.timeout_seconds", 60)

	// Mail vendor defaults
	v.SetDefault("letters.base_url", "https://api.postgrid.com/print-mail/v1")
	v.SetDefault("letters.from_country", "US")

	// Chat defaults
	v.SetDefault("chat.base_url", "https://slack.com/api")
	v.SetDefault("chat.channel", "#collections-ops")

	// Campaign stage ids (opportunity statuses; error is a lead status)
	v.SetDefault("campaign.stages.unpaid", "stat_IhSstcuVR2EhiaHesQwowu9Y0JkjQfVV6BvBhXQxBnT")
	v.SetDefault("campaign.stages.stage1", "stat_YM4zWiayFRmMPX81kVRtUc55bCONbHzCun81YvCU8xJ")
	v.SetDefault("campaign.stages.stage2", "stat_etKn0Polby4XpPZjd5JxhUjVqovplh5uv8HrWDnpClm")
	v.SetDefault("campaign.stages.stage3", "stat_hrU7Gd0liwAfY3TCJ1IA5k5RxSzIKaBJYfNEbtmg3Yc")
	v.SetDefault("campaign.stages.hold", "stat_fB3saONDWZTs4JVRhLe6bq310jNaTJonrPKAlclzzOy")
	v.SetDefault("campaign.stages.error", "stat_j2Fj190JXd0WWx1UnMyuVd57SeplIVNnvt9DKyfSNSb")

	// Per-round letter templates
	v.SetDefault("campaign.templates.round1", "template_8iK9EPaUVw8FeAMiNRS1LY")
	v.SetDefault("campaign.templates.round2", "template_epFxkRdNuHXiR8mihVsUCe")
	v.SetDefault("campaign.templates.round3", "template_jQgW1CnJ9BdDikMPt1znox")

	v.SetDefault("letters.from_contact_id", "contact_4wcKbnQqDwkLkFCRutSkLy")

	v.SetDefault("roster_path", "roster.yaml")

	// Custom field ids: opportunity
	v.SetDefault("fields.mailer_dates", "cf_JWPYpJQg1RLH2Z4wQw8mtdz8YyZTfF22mF97f1JDocf")
	v.SetDefault("fields.template", "cf_NqmTys3HpgtKMa6OK3mc46kgbbGWwgWH2xAM3UcUObe")
	v.SetDefault("fields.citation_number", "cf_d2z5OWkrrq9ePYmioTPu1zvKolS37gNtnzwWHnekZ3i")
	v.SetDefault("fields.citation_date", "cf_wlmTmD6U8hk3Br48unSR2Z8sIs4sDNRQPG9f0cByLdk")
	v.SetDefault("fields.citation_time", "cf_nKY3NsNFLbwW9XQWOMZ8NP9GMW8DweFbYi8bsQRaakd")
	v.SetDefault("fields.citation_image_url", "cf_xA5GMk9tnuQTHhrlMUxSVF0pBEstwntwQFJA1UZ6tGB")
	v.SetDefault("fields.fine_amount", "cf_HyE1MBU2E747k9YUnUmlVnYFTXUU3Bb1BvhLClPYZE8")
	v.SetDefault("fields.service_fee", "cf_HOmP6eCjgTvwXQOBe9ZBfZP8L4nGeQP5OR5lFjarlLy")
	v.SetDefault("fields.lot_address", "cf_xDLglpyPXow2sw4n4Fayizbu8rviuZaPSwy1wk5foKe")
	v.SetDefault("fields.lot_uid", "cf_Lu4RA5aPZCkuIhiyHgZkRIrASNZy9Q5IuWT4mY53zoh")

	// Custom field ids: lead
	v.SetDefault("fields.last_mail_date", "cf_YgLBH6cihcQCc1DmjFSWARc7HlBcLgKevED1KUdh0Bm")
	v.SetDefault("fields.mailed_today", "cf_9iBTbWy34YhXjzER2hwJTMRmknKNBtHxQwMgKYmh2k5")
	v.SetDefault("fields.sales_owner", "cf_QN63hvQpK9qCVBFwQxI19MeGro3AgUqzk8cR887j4RP")
	v.SetDefault("fields.secondary_lot_uid", "cf_y5hbrSG2aU0c0v3IOWx4fvGfRykNf2Unn6HzDJmNZWN")

	// Lead fields resolved by display name at startup
	v.SetDefault("fields.lead_names.mailing_address", "Current Mailing Address")
	v.SetDefault("fields.lead_names.make", "Make")
	v.SetDefault("fields.lead_names.model", "Model")

	// Saved search definitions
	v.SetDefault("queries.dir", "queries")
	v.SetDefault("queries.rounds", "rounds.json")
	v.SetDefault("queries.holds", "holds.json")
	v.SetDefault("queries.mailers", "mailers.json")
	v.SetDefault("queries.counting", "counting.json")
	v.SetDefault("queries.reservoir", "reservoir.json")
	v.SetDefault("queries.handoff", "handoff.json")
	v.SetDefault("queries.missing_lot", "missing_lot.json")

	// Pacing defaults
	v.SetDefault("pacing.rate_buffer_ms", 1000)
	v.SetDefault("pacing.transient_retry_ms", 5000)
	v.SetDefault("pacing.pages_per_second", 2.0)
	v.SetDefault("pacing.record_delay_ms", 250)
	v.SetDefault("pacing.max_attempts", 0) // unbounded

	// Workflow defaults
	v.SetDefault("assign.target_count", 400)
	v.SetDefault("handoff.target_count", 300)
	v.SetDefault("handoff.email_subject", "Owner research handoff")
	v.SetDefault("handoff.output_dir", ".")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("crm.api_key", "DUNNER_CRM_API_KEY")
	v.BindEnv("secondary_crm.api_key", "DUNNER_SECONDARY_CRM_API_KEY")
	v.BindEnv("letters.api_key", "DUNNER_LETTERS_API_KEY")
	v.BindEnv("chat.token", "DUNNER_CHAT_TOKEN")
}
