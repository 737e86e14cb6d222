package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type GoogleGeocoder struct {
	key     string
	baseURL string
	client  *rest.Client
}

func NewGoogleGeocoder(key string, timeout time.Duration) *GoogleGeocoder {
	return &GoogleGeocoder{key: key, baseURL: googleGeocodeURL, client: newClient(timeout)}
}

func (g *GoogleGeocoder) WithBaseURL(u string) *GoogleGeocoder {
	g.baseURL = u
	return g
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	req := rest.Request{
		Method:  rest.Get,
		BaseURL: g.baseURL,
		QueryParams: map[string]string{
			"latlng":   strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64),
			"key":      g.key,
			"language": "en",
		},
	}

	res, err := g.client.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "google geocode")
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("google geocode status %d", res.StatusCode)
	}

	var body googleResponse
	if err := json.Unmarshal([]byte(res.Body), &body); err != nil {
		return "", errors.Wrap(err, "google geocode body")
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return "", ErrNoAddress
	}
	return body.Results[0].FormattedAddress, nil
}
