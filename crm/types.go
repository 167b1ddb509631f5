package crm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Custom holds a record's custom-field values keyed by field id. The API
// flattens them into detail bodies as "custom.cf_..." keys; the prefix is
// stripped on capture. Values arrive as strings, numbers, bools, or lists
// depending on the field type.
type Custom map[string]interface{}

const customPrefix = "custom."

// CustomKey prefixes a field id the way search conditions and write
// payloads expect.
func CustomKey(fieldID string) string {
	return customPrefix + fieldID
}

// Has reports whether the field is present at all. Present-but-empty and
// absent are different states; date-list parsing cares.
func (c Custom) Has(fieldID string) bool {
	_, ok := c[fieldID]
	return ok
}

// String returns the field as a string: "" for absent or null, numbers
// without trailing zeros, lists joined with ", ".
func (c Custom) String(fieldID string) string {
	v, ok := c[fieldID]
	if !ok || v == nil {
		return ""
	}
	return stringifyCustom(v)
}

func stringifyCustom(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringifyCustom(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// captureCustom pulls the flattened custom.* keys out of a detail body.
func captureCustom(data []byte) Custom {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	custom := make(Custom)
	for key, value := range raw {
		if !strings.HasPrefix(key, customPrefix) {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		custom[strings.TrimPrefix(key, customPrefix)] = v
	}
	return custom
}

// LeadRef is the projection of a lead returned by the search endpoint:
// identity plus enough of each opportunity to pick processing candidates.
type LeadRef struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"display_name"`
	Opportunities []OpportunityRef `json:"opportunities"`
}

// OpportunityRef is the nested opportunity projection in search results.
type OpportunityRef struct {
	ID          string `json:"id"`
	StatusID    string `json:"status_id"`
	StatusLabel string `json:"status_label"`
}

// Lead is the full detail body of a lead.
type Lead struct {
	ID            string
	Name          string
	DisplayName   string
	StatusID      string
	Contacts      []Contact
	Addresses     []Address
	Opportunities []OpportunityRef
	Custom        Custom
}

func (l *Lead) UnmarshalJSON(data []byte) error {
	var body struct {
		ID            string           `json:"id"`
		Name          string           `json:"name"`
		DisplayName   string           `json:"display_name"`
		StatusID      string           `json:"status_id"`
		Contacts      []Contact        `json:"contacts"`
		Addresses     []Address        `json:"addresses"`
		Opportunities []OpportunityRef `json:"opportunities"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*l = Lead{
		ID:            body.ID,
		Name:          body.Name,
		DisplayName:   body.DisplayName,
		StatusID:      body.StatusID,
		Contacts:      body.Contacts,
		Addresses:     body.Addresses,
		Opportunities: body.Opportunities,
		Custom:        captureCustom(data),
	}
	return nil
}

// Opportunity is the full detail body of an opportunity.
type Opportunity struct {
	ID             string
	LeadID         string
	StatusID       string
	StatusLabel    string
	DisplayName    string
	ValueFormatted string
	Custom         Custom
}

func (o *Opportunity) UnmarshalJSON(data []byte) error {
	var body struct {
		ID             string `json:"id"`
		LeadID         string `json:"lead_id"`
		StatusID       string `json:"status_id"`
		StatusLabel    string `json:"status_label"`
		DisplayName    string `json:"display_name"`
		ValueFormatted string `json:"value_formatted"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*o = Opportunity{
		ID:             body.ID,
		LeadID:         body.LeadID,
		StatusID:       body.StatusID,
		StatusLabel:    body.StatusLabel,
		DisplayName:    body.DisplayName,
		ValueFormatted: body.ValueFormatted,
		Custom:         captureCustom(data),
	}
	return nil
}

// Contact is a person attached to a lead.
type Contact struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Emails      []ContactEmail `json:"emails"`
}

// ContactEmail is one address in a contact's email list.
type ContactEmail struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// PrimaryEmail returns the contact's first non-empty address.
func (c Contact) PrimaryEmail() string {
	for _, e := range c.Emails {
		if e.Email != "" {
			return e.Email
		}
	}
	return ""
}

// Address is one postal address on a lead.
type Address struct {
	Label    string `json:"label"`
	Address1 string `json:"address_1"`
	Address2 string `json:"address_2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zipcode  string `json:"zipcode"`
}

// OneLine renders the address as "street unit city, state, zip".
func (a Address) OneLine() string {
	var parts []string
	if a.Address1 != "" {
		parts = append(parts, a.Address1)
	}
	if a.Address2 != "" {
		parts = append(parts, a.Address2)
	}
	if a.City != "" {
		cityGroup := []string{a.City}
		if a.State != "" {
			cityGroup = append(cityGroup, a.State)
		}
		if a.Zipcode != "" {
			cityGroup = append(cityGroup, a.Zipcode)
		}
		parts = append(parts, strings.Join(cityGroup, ", "))
	}
	return strings.Join(parts, " ")
}

// EmailAccount is a sending identity configured on the account.
type EmailAccount struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// EmailDraft is an outbound email activity. Status "outbox" sends
// immediately; attachments reference previously uploaded files.
type EmailDraft struct {
	LeadID         string            `json:"lead_id"`
	ContactID      string            `json:"contact_id"`
	Direction      string            `json:"direction"`
	Status         string            `json:"status"`
	Subject        string            `json:"subject"`
	Sender         string            `json:"sender"`
	CreatedByName  string            `json:"created_by_name,omitempty"`
	To             []string          `json:"to"`
	BodyText       string            `json:"body_text"`
	Attachments    []EmailAttachment `json:"attachments,omitempty"`
	EmailAccountID string            `json:"email_account_id,omitempty"`
}

// EmailAttachment references an uploaded file by its download URL.
type EmailAttachment struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
