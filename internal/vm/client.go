package vm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rtm0/nino34/internal/climate"
)

// Client is a Victoria Metrics client capable of inserting regional index
// records via various protocols.
type Client struct {
	logger       *slog.Logger
	httpCli      *http.Client
	insertURL    string
	metricPrefix string
	recToText    recToTextFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client.
func NewClient(logger *slog.Logger, insertURL string, maxConns int, metricPrefix string) (*Client, error) {
	url, err := url.Parse(insertURL)
	if err != nil {
		return nil, err
	}

	matches, err := regexp.MatchString(metricPrefixRE, metricPrefix)
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, fmt.Errorf("metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[url.Path]
	recToText := recToTextFuncs[url.Path]
	if apiParams == nil || recToText == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}
	q := url.Query()
	for name, value := range apiParams(metricPrefix) {
		q.Add(name, value)
	}
	url.RawQuery = q.Encode()

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		insertURL:    url.String(),
		metricPrefix: metricPrefix,
		recToText:    recToText,
	}, nil
}

// Name identifies the sink in logs and metrics.
func (c *Client) Name() string {
	return "victoriametrics"
}

// Insert inserts index records into Victoria Metrics.
func (c *Client) Insert(ctx context.Context, recs []climate.Record) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.insertURL, recsToText(recs, c.metricPrefix, c.recToText))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	res, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("could not post data: %w", err)
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		c.logger.Error("Failed to drain response body", "err", err)
	}
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

type apiParamsFunc func(string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

func influxDBAPIParams(string) map[string]string {
	return map[string]string{"precision": "ms"}
}

func csvAPIParams(metricPrefix string) map[string]string {
	return map[string]string{
		"format": fmt.Sprintf("1:time:unix_ms,2:label:region,3:metric:%s_tas", metricPrefix),
	}
}

type recToTextFunc func(*strings.Builder, *climate.Record, string)

// recsToText converts multiple index records to text.
func recsToText(recs []climate.Record, metricPrefix string, recToText recToTextFunc) io.Reader {
	var sb strings.Builder
	for _, r := range recs {
		recToText(&sb, &r, metricPrefix)
		sb.WriteString("\n")
	}
	return strings.NewReader(sb.String())
}

var recToTextFuncs = map[string]recToTextFunc{
	"/influx/write":        recToInfluxDB,
	"/influx/api/v2/write": recToInfluxDB,
	"/write":               recToInfluxDB,
	"/api/v2/write":        recToInfluxDB,
	"/api/v1/import/csv":   recToCSV,
}

var influxDBFmt = "%s,region=%s tas=%.4f %d"

// recToInfluxDB converts an index record into InfluxDB line protocol v2 and
// appends it to the string builder.
func recToInfluxDB(sb *strings.Builder, r *climate.Record, metricPrefix string) {
	fmt.Fprintf(sb, influxDBFmt, metricPrefix, r.Region, r.Value, r.Timestamp)
}

var csvFmt = "%d,%s,%.4f"

// recToCSV converts an index record into a CSV record and appends it to the
// string builder.
func recToCSV(sb *strings.Builder, r *climate.Record, _ string) {
	fmt.Fprintf(sb, csvFmt, r.Timestamp, r.Region, r.Value)
}
