package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lotworks/dunner/errors"
)

// Metric names accepted by the activity report endpoint.
const (
	MetricCallsAllCount       = "calls.all.all.count"
	MetricCallsAllDuration    = "calls.all.all.sum_duration"
	MetricOutboundCount       = "calls.outbound.all.count"
	MetricOutboundDuration    = "calls.outbound.all.sum_duration"
	MetricOutboundAvgDuration = "calls.outbound.all.avg_duration"
	MetricInboundCount        = "calls.inbound.all.count"
	MetricInboundDuration     = "calls.inbound.all.sum_duration"
	MetricWonCount            = "opportunities.won.all.count"
)

const reportTimeLayout = "2006-01-02T15:04:05Z"

// ActivityRequest selects the reporting window and metrics for one user.
type ActivityRequest struct {
	Start   time.Time
	End     time.Time
	UserID  string
	Metrics []string
}

// ActivityReport runs a comparison report for one user and returns the
// requested metrics. Metrics the API omits come back as zero.
func (c *Client) ActivityReport(ctx context.Context, req ActivityRequest) (map[string]float64, error) {
	payload := map[string]interface{}{
		"datetime_range": map[string]string{
			"start": req.Start.UTC().Format(reportTimeLayout),
			"end":   req.End.UTC().Format(reportTimeLayout),
		},
		"users":   []string{req.UserID},
		"type":    "comparison",
		"metrics": req.Metrics,
	}
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: "/report/activity/", Body: payload})
	if err != nil {
		return nil, err
	}

	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, errors.Wrap(err, "activity report did not decode")
	}
	for _, row := range body.Data {
		if row["user_id"] != req.UserID {
			continue
		}
		values := make(map[string]float64, len(req.Metrics))
		for _, metric := range req.Metrics {
			if v, ok := row[metric].(float64); ok {
				values[metric] = v
			}
		}
		return values, nil
	}
	return nil, errors.Newf("activity report has no row for user %s", req.UserID)
}
