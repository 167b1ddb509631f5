package letters

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lotworks/dunner/config"
)

func testLetter() Letter {
	return Letter{
		To: Recipient{
			FirstName:    "Pat",
			LastName:     "Driver",
			AddressLine1: "12 Elm St",
			City:         "Reno",
			State:        "NV",
			PostalCode:   "89501",
		},
		Template: "tmpl_r2",
		Merge: MergeVariables{
			CitationNumber: "CIT-0042",
			Value:          "65.75",
			PlateNumber:    "8ABC123",
			PlateLocation:  "NV",
			CitationDate:   "05/01/2024",
			FirstMailer:    "05/02/2024",
			FineAmount:     "50",
			ServiceFee:     "15.75",
		},
	}
}

func newTestLetters(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.LettersConfig{
		APIKey:        "pg_test_key",
		BaseURL:       srv.URL,
		FromContactID: "contact_sender",
	})
	client.SetClock(func() time.Time { return time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC) })
	return client
}

func TestSend_EncodesTheFullForm(t *testing.T) {
	var form map[string][]string
	var apiKey, contentType string
	client := newTestLetters(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		form = r.PostForm
		fmt.Fprint(w, `{"id": "letter_123"}`)
	}))

	id, err := client.Send(t.Context(), testLetter())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "letter_123" {
		t.Errorf("letter id = %q, want letter_123", id)
	}
	if apiKey != "pg_test_key" {
		t.Errorf("x-api-key = %q, want pg_test_key", apiKey)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q, want form encoding", contentType)
	}

	field := func(key, want string) {
		t.Helper()
		got, ok := form[key]
		if !ok {
			t.Errorf("form key %q missing", key)
			return
		}
		if got[0] != want {
			t.Errorf("form[%q] = %q, want %q", key, got[0], want)
		}
	}
	field("to[firstName]", "Pat")
	field("to[lastName]", "Driver")
	field("to[addressLine1]", "12 Elm St")
	field("to[addressLine2]", "")
	field("to[city]", "Reno")
	field("to[provinceOrState]", "NV")
	field("to[postalOrZip]", "89501")
	field("to[countryCode]", "US")
	field("from", "contact_sender")
	field("template", "tmpl_r2")
	field("size", "us_letter")
	field("addressPlacement", "top_first_page")
	field("doubleSided", "false")
	field("color", "true")
	field("mailingClass", "first_class")
	field("description", "Invoice CIT-0042 (06/01/2024)")
	field("mergeVariables[citation number]", "CIT-0042")
	field("mergeVariables[value]", "65.75")
	field("mergeVariables[plate number]", "8ABC123")
	field("mergeVariables[plate location]", "NV")
	field("mergeVariables[citation date]", "05/01/2024")
	field("mergeVariables[first mailer]", "05/02/2024")
	field("mergeVariables[second mailer]", "")
	field("mergeVariables[fine amount]", "50")
	field("mergeVariables[service fee]", "15.75")
	field("mergeVariables[last mail date]", "")
	field("mergeVariables[make]", "")
	field("mergeVariables[model]", "")
	field("mergeVariables[citation time]", "")
	field("mergeVariables[lot location]", "")
	field("mergeVariables[citation image url]", "")
}

func TestSend_InlineSenderWhenNoContactID(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		form = r.PostForm
		fmt.Fprint(w, `{"id": "letter_9"}`)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.LettersConfig{
		APIKey:         "pg_test_key",
		BaseURL:        srv.URL,
		FromName:       "Lot Works LLC",
		FromAddress:    "1 Depot Way",
		FromCity:       "Reno",
		FromProvince:   "NV",
		FromPostalCode: "89501",
		FromCountry:    "US",
	})

	if _, err := client.Send(t.Context(), testLetter()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := form["from"]; ok {
		t.Error("contact-id from sent despite inline sender config")
	}
	if got := form["from[companyName]"]; len(got) == 0 || got[0] != "Lot Works LLC" {
		t.Errorf("from[companyName] = %v, want the inline sender", got)
	}
	if got := form["from[postalOrZip]"]; len(got) == 0 || got[0] != "89501" {
		t.Errorf("from[postalOrZip] = %v, want 89501", got)
	}
}

func TestSend_DeclineCarriesVendorReason(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "message preferred",
			status:  400,
			body:    `{"error": {"type": "invalid_address", "message": "to.postalOrZip invalid"}}`,
			wantMsg: "to.postalOrZip invalid",
		},
		{
			name:    "type when no message",
			status:  422,
			body:    `{"error": {"type": "template_not_found"}}`,
			wantMsg: "template_not_found",
		},
		{
			name:    "raw text body",
			status:  502,
			body:    "upstream print queue unavailable",
			wantMsg: "upstream print queue unavailable",
		},
		{
			name:    "empty body",
			status:  503,
			body:    "",
			wantMsg: "HTTP 503",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestLetters(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			_, err := client.Send(t.Context(), testLetter())
			vendorErr, ok := IsVendorDecline(err)
			if !ok {
				t.Fatalf("err = %v, want VendorError", err)
			}
			if vendorErr.Status != tt.status {
				t.Errorf("status = %d, want %d", vendorErr.Status, tt.status)
			}
			if vendorErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", vendorErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestSend_AcceptedNonJSONBodyStillCounts(t *testing.T) {
	client := newTestLetters(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	}))

	id, err := client.Send(t.Context(), testLetter())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "" {
		t.Errorf("letter id = %q, want empty for a non-JSON accept", id)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: ""},
		{raw: "0", want: "0"},
		{raw: "0.00", want: "0"},
		{raw: "50", want: "50"},
		{raw: "50.0", want: "50"},
		{raw: "65.75", want: "65.75"},
		{raw: "65.7", want: "65.70"},
		{raw: "1,234.00", want: "1,234.00"},
		{raw: "waived", want: "waived"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.raw); got != tt.want {
			t.Errorf("FormatAmount(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStripCurrency(t *testing.T) {
	if got := StripCurrency("$65.75"); got != "65.75" {
		t.Errorf("StripCurrency = %q, want 65.75", got)
	}
	if got := StripCurrency("65.75"); got != "65.75" {
		t.Errorf("StripCurrency = %q, want pass-through", got)
	}
}

func TestRecipientComplete(t *testing.T) {
	full := Recipient{FirstName: "Pat", LastName: "Driver", AddressLine1: "12 Elm St"}
	if !full.Complete() {
		t.Error("complete recipient reported incomplete")
	}
	for _, r := range []Recipient{
		{LastName: "Driver", AddressLine1: "12 Elm St"},
		{FirstName: "Pat", AddressLine1: "12 Elm St"},
		{FirstName: "Pat", LastName: "Driver"},
	} {
		if r.Complete() {
			t.Errorf("recipient %+v reported complete", r)
		}
	}
}
