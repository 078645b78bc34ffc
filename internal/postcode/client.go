// Package postcode queries the Ordnance Survey Places registry for addresses
// at a UK postcode and maps provider responses to typed outcomes. The client
// performs no retries; retry policy belongs to callers so failure semantics
// stay explicit.
package postcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	addrmodels "address-cri/internal/address/models"
	"address-cri/pkg/privacy"
)

// logSource prefixes every log line from this client so registry traffic is
// attributable in aggregated logs.
const logSource = "os-places-registry"

// postcodeFormat is the strict inbound validation shape: one or two letters,
// a digit, an optional alphanumeric, then the inward code. Checked before any
// network call is made.
var postcodeFormat = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9][A-Z0-9]?\s?[0-9][A-Z]{2}$`)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cri_postcode_lookups_total",
		Help: "Postcode registry lookups by outcome",
	}, []string{"outcome"})

	lookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cri_postcode_lookup_duration_seconds",
		Help:    "Duration of postcode registry lookups",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
)

// Client calls the registry's postcode search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (stubs in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each lookup call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger attaches a logger; all logged bodies are redacted first.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a registry client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// registryResponse is the provider's wire shape: a results array of
// DPA-keyed records, with an optional fault object on errors.
type registryResponse struct {
	Results []struct {
		DPA dpaRecord `json:"DPA"`
	} `json:"results"`
	Error *registryFault `json:"error,omitempty"`
}

type dpaRecord struct {
	UPRN             string `json:"UPRN"`
	BuildingName     string `json:"BUILDING_NAME"`
	BuildingNumber   string `json:"BUILDING_NUMBER"`
	ThoroughfareName string `json:"THOROUGHFARE_NAME"`
	PostTown         string `json:"POST_TOWN"`
	Postcode         string `json:"POSTCODE"`
	CountryCode      string `json:"COUNTRY_CODE"`
}

type registryFault struct {
	StatusCode int    `json:"statuscode"`
	Message    string `json:"message"`
}

// Lookup validates the postcode, queries the registry, and maps the response
// to an ordered candidate list. Failures are typed via LookupError; session
// state is never touched here.
func (c *Client) Lookup(ctx context.Context, rawPostcode string) ([]addrmodels.CanonicalAddress, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rawPostcode))
	if !postcodeFormat.MatchString(normalized) {
		lookupsTotal.WithLabelValues("validation_error").Inc()
		return nil, newLookupError(KindValidation, "postcode is not a valid UK postcode", nil)
	}

	tracer := otel.Tracer("address-cri/internal/postcode")
	ctx, span := tracer.Start(ctx, "registry.postcode.lookup")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	addresses, err := c.doLookup(ctx, normalized)
	lookupDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	lookupsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("registry.outcome", outcome))

	return addresses, err
}

func (c *Client) doLookup(ctx context.Context, postcode string) ([]addrmodels.CanonicalAddress, error) {
	endpoint := fmt.Sprintf("%s/search/places/v1/postcode?%s", c.baseURL, url.Values{
		"postcode": {postcode},
		"key":      {c.apiKey},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newLookupError(KindProvider, "failed to build registry request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logWarn(ctx, "registry call failed", "error", privacy.Sanitize(err.Error()))
		return nil, newLookupError(KindTimeout, "registry unreachable or timed out", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newLookupError(KindTimeout, "registry response timed out", err)
		}
		return nil, newLookupError(KindProvider, "failed to read registry response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapFault(ctx, resp.StatusCode, body)
	}

	var parsed registryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logWarn(ctx, "registry returned malformed body", "body", privacy.Sanitize(string(body)))
		return nil, newLookupError(KindProvider, "registry returned malformed response", err)
	}

	if len(parsed.Results) == 0 {
		return nil, newLookupError(KindNotFound, "no addresses found for postcode", nil)
	}

	addresses := make([]addrmodels.CanonicalAddress, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		addresses = append(addresses, result.DPA.toCanonical())
	}

	c.logInfo(ctx, "registry lookup succeeded", "result_count", len(addresses))
	return addresses, nil
}

func (c *Client) mapFault(ctx context.Context, status int, body []byte) error {
	var parsed registryResponse
	message := "registry request rejected"
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
	}

	c.logWarn(ctx, "registry returned error status",
		"status", status,
		"body", privacy.Sanitize(string(body)),
	)

	if status >= http.StatusInternalServerError {
		return &LookupError{Kind: KindProvider, StatusCode: status, Message: "registry unavailable"}
	}
	return &LookupError{Kind: KindProvider, StatusCode: status, Message: privacy.Sanitize(message)}
}

// toCanonical maps the provider field shape onto the normalized address.
func (d dpaRecord) toCanonical() addrmodels.CanonicalAddress {
	country := "GB"
	if d.CountryCode != "" {
		country = d.CountryCode
	}
	return addrmodels.CanonicalAddress{
		BuildingName:   d.BuildingName,
		BuildingNumber: d.BuildingNumber,
		StreetName:     d.ThoroughfareName,
		Locality:       d.PostTown,
		PostalCode:     d.Postcode,
		Country:        country,
	}
}

func (c *Client) logInfo(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.InfoContext(ctx, msg, append([]any{"source", logSource}, args...)...)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, append([]any{"source", logSource}, args...)...)
	}
}
