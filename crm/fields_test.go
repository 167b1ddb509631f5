package crm

import (
	"net/http"
	"testing"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
)

func schemaHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/custom_field/opportunity/":
			okJSON(w, `{"data": [
				{"id": "cf_opp_dates", "name": "Mailer Dates"},
				{"id": "cf_opp_tmpl", "name": "Template"},
				{"id": "cf_opp_lot", "name": "Lot Address"}
			]}`)
		case "/custom_field/lead/":
			okJSON(w, `{"data": [
				{"id": "cf_lead_lmd", "name": "Last Mail Date"},
				{"id": "cf_lead_addr", "name": "Current Mailing Address"},
				{"id": "cf_lead_make", "name": "Make"}
			]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func TestFieldRegistry_ValidateResolvesNames(t *testing.T) {
	client := newTestClient(t, schemaHandler(t))

	fields := config.FieldsConfig{
		MailerDates:  "cf_opp_dates",
		Template:     "cf_opp_tmpl",
		LotAddress:   "cf_opp_lot",
		LastMailDate: "cf_lead_lmd",
		LeadNames: config.LeadNameFields{
			MailingAddress: "Current Mailing Address",
			Make:           "Make",
			Model:          "Model",
		},
	}

	reg := NewFieldRegistry(fields)
	if err := reg.Validate(t.Context(), client); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if reg.Lead.MailingAddress != "cf_lead_addr" {
		t.Errorf("MailingAddress id = %q, want cf_lead_addr", reg.Lead.MailingAddress)
	}
	if reg.Lead.Make != "cf_lead_make" {
		t.Errorf("Make id = %q, want cf_lead_make", reg.Lead.Make)
	}
	// "Model" is not in the schema: resolution warns and leaves it empty.
	if reg.Lead.Model != "" {
		t.Errorf("Model id = %q, want empty", reg.Lead.Model)
	}
}

func TestFieldRegistry_UnknownIDIsFatal(t *testing.T) {
	client := newTestClient(t, schemaHandler(t))

	reg := NewFieldRegistry(config.FieldsConfig{MailerDates: "cf_typo_not_in_schema"})
	err := reg.Validate(t.Context(), client)
	if err == nil {
		t.Fatal("Validate accepted an id the schema does not have")
	}
	if !errors.IsFatalConfig(err) {
		t.Errorf("error = %v, want fatal config", err)
	}
}

func TestFieldRegistry_EmptyIDsAreSkipped(t *testing.T) {
	client := newTestClient(t, schemaHandler(t))

	// A deployment that never uses the lot workflows leaves those ids
	// blank; validation must not demand them.
	reg := NewFieldRegistry(config.FieldsConfig{})
	if err := reg.Validate(t.Context(), client); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCustomKey(t *testing.T) {
	if got := CustomKey("cf_abc"); got != "custom.cf_abc" {
		t.Errorf("CustomKey = %q", got)
	}
}
