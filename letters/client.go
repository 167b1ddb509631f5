package letters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/internal/httpx"
	"github.com/lotworks/dunner/logger"
)

const (
	lettersPath    = "/print-mail/v1/letters"
	defaultTimeout = 60 * time.Second

	// descDateLayout stamps the submission date into the vendor-side
	// description, which is what operators search the vendor dashboard by.
	descDateLayout = "01/02/2006"
)

// Client talks to the print-mail vendor. There is no retry layer here:
// the vendor bills per accepted letter, and resubmitting a letter that
// may have been accepted risks double mail. One attempt, one answer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     config.LettersConfig
	log        *zap.SugaredLogger
	verbosity  int
	timeNow    func() time.Time
}

// NewClient builds a vendor client from configuration.
func NewClient(cfg config.LettersConfig) *Client {
	return &Client{
		httpClient: httpx.New(defaultTimeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		sender:     cfg,
		log:        logger.ComponentLogger("letters"),
		timeNow:    time.Now,
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetClock injects a fixed clock. Used by tests.
func (c *Client) SetClock(timeNow func() time.Time) {
	c.timeNow = timeNow
}

// SetVerbosity controls how much of the HTTP conversation gets logged.
func (c *Client) SetVerbosity(v int) {
	c.verbosity = v
}

// VendorError is a decline from the vendor: the request arrived, the
// vendor said no. The workflows quarantine the lead with the vendor's
// reason instead of retrying.
type VendorError struct {
	Status  int
	Message string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("letter vendor declined: %s (status %d)", e.Message, e.Status)
}

// IsVendorDecline extracts a VendorError from err's chain.
func IsVendorDecline(err error) (*VendorError, bool) {
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) {
		return vendorErr, true
	}
	return nil, false
}

// Send submits one letter and returns the vendor's letter id. A 4xx/5xx
// answer comes back as a *VendorError; transport failures come back as
// plain errors. A 2xx body that is not JSON still counts as accepted,
// with an empty id.
func (c *Client) Send(ctx context.Context, letter Letter) (string, error) {
	form := c.encode(letter)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+lettersPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "building letter request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending letter")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading vendor response")
	}

	if resp.StatusCode >= 400 {
		return "", &VendorError{Status: resp.StatusCode, Message: declineMessage(resp.StatusCode, body)}
	}

	var accepted struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &accepted); err != nil {
		c.log.Debugw("vendor accepted with a non-JSON body", logger.FieldStatus, resp.StatusCode)
		return "", nil
	}
	if logger.ShouldOutput(c.verbosity, logger.OutputHTTPCalls) {
		c.log.Debugw("letter submitted",
			logger.FieldLetterID, accepted.ID,
			logger.FieldStatus, resp.StatusCode)
	}
	return accepted.ID, nil
}

// encode flattens a letter into the vendor's bracketed form keys. Every
// recipient and merge key is always present so template rendering stays
// deterministic.
func (c *Client) encode(letter Letter) url.Values {
	form := url.Values{}

	form.Set("to[firstName]", letter.To.FirstName)
	form.Set("to[lastName]", letter.To.LastName)
	form.Set("to[addressLine1]", letter.To.AddressLine1)
	form.Set("to[addressLine2]", letter.To.AddressLine2)
	form.Set("to[city]", letter.To.City)
	form.Set("to[provinceOrState]", letter.To.State)
	form.Set("to[postalOrZip]", letter.To.PostalCode)
	country := letter.To.Country
	if country == "" {
		country = "US"
	}
	form.Set("to[countryCode]", country)

	if c.sender.FromContactID != "" {
		form.Set("from", c.sender.FromContactID)
	} else {
		form.Set("from[companyName]", c.sender.FromName)
		form.Set("from[addressLine1]", c.sender.FromAddress)
		form.Set("from[city]", c.sender.FromCity)
		form.Set("from[provinceOrState]", c.sender.FromProvince)
		form.Set("from[postalOrZip]", c.sender.FromPostalCode)
		form.Set("from[countryCode]", c.sender.FromCountry)
	}

	form.Set("template", letter.Template)
	form.Set("size", "us_letter")
	form.Set("addressPlacement", "top_first_page")
	form.Set("doubleSided", "false")
	form.Set("color", "true")
	form.Set("mailingClass", "first_class")
	form.Set("description", fmt.Sprintf("Invoice %s (%s)", letter.Merge.CitationNumber, c.timeNow().Format(descDateLayout)))

	m := letter.Merge
	form.Set("mergeVariables[citation number]", m.CitationNumber)
	form.Set("mergeVariables[last mail date]", m.LastMailDate)
	form.Set("mergeVariables[value]", m.Value)
	form.Set("mergeVariables[plate number]", m.PlateNumber)
	form.Set("mergeVariables[plate location]", m.PlateLocation)
	form.Set("mergeVariables[make]", m.Make)
	form.Set("mergeVariables[model]", m.Model)
	form.Set("mergeVariables[citation date]", m.CitationDate)
	form.Set("mergeVariables[citation time]", m.CitationTime)
	form.Set("mergeVariables[lot location]", m.LotLocation)
	form.Set("mergeVariables[first mailer]", m.FirstMailer)
	form.Set("mergeVariables[second mailer]", m.SecondMailer)
	form.Set("mergeVariables[fine amount]", m.FineAmount)
	form.Set("mergeVariables[service fee]", m.ServiceFee)
	form.Set("mergeVariables[citation image url]", m.CitationImageURL)

	return form
}

// declineMessage pulls the most specific reason out of a decline body:
// the vendor's error message, its error type, then the raw text capped
// at a note-sized length.
func declineMessage(status int, body []byte) string {
	var decline struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decline); err == nil {
		if decline.Error.Message != "" {
			return decline.Error.Message
		}
		if decline.Error.Type != "" {
			return decline.Error.Type
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	if len(text) > 100 {
		text = text[:100]
	}
	return text
}
