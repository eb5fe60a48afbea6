// Package openmeteo implements domain.WeatherProvider using the Open-Meteo
// forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
)

// ProviderName is recorded on every snapshot this client returns.
const ProviderName = "open-meteo"

// averageWindow is the number of leading hourly values averaged per series.
const averageWindow = 6

// Client fetches near-term weather from Open-Meteo.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. baseURL is the API origin, for
// example https://api.open-meteo.com.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentWeather returns the average of the next hours of forecast at loc.
// Failures are logged and yield an all-unknown snapshot.
func (c *Client) CurrentWeather(ctx context.Context, loc orb.Point) domain.WeatherSnapshot {
	start := time.Now()
	snapshot, err := c.fetch(ctx, loc)
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		c.logger.Warn("weather lookup failed, continuing with unknown weather",
			"lat", loc.Lat(),
			"lon", loc.Lon(),
			"error", err,
		)
		return domain.WeatherSnapshot{Provider: ProviderName}
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return snapshot
}

func (c *Client) fetch(ctx context.Context, loc orb.Point) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(loc.Lat(), 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(loc.Lon(), 'f', -1, 64)},
		"hourly":        {"temperature_2m,relative_humidity_2m,precipitation_probability"},
		"forecast_days": {"1"},
		"timezone":      {"auto"},
	}
	fullURL := c.baseURL + "/v1/forecast?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherSnapshot{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var forecast response
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.WeatherSnapshot{
		Provider:               ProviderName,
		TemperatureC:           average(forecast.Hourly.Temperature),
		HumidityPercent:        average(forecast.Hourly.RelativeHumidity),
		RainProbabilityPercent: average(forecast.Hourly.PrecipitationProbability),
	}, nil
}

// average returns the mean of the non-null values among the first
// averageWindow entries, or nil when there are none.
func average(series []*float64) *float64 {
	if len(series) > averageWindow {
		series = series[:averageWindow]
	}
	var sum float64
	var n int
	for _, v := range series {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	return domain.Float(sum / float64(n))
}

// Open-Meteo API response types.

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Time                     []string   `json:"time"`
	Temperature              []*float64 `json:"temperature_2m"`
	RelativeHumidity         []*float64 `json:"relative_humidity_2m"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
}
