package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

const userAgent = "hk-samms-apisvc/1.0"

// NominatimGeocoder uses the OpenStreetMap reverse geocoding API.
type NominatimGeocoder struct {
	baseURL string
	client  *rest.Client
}

func NewNominatimGeocoder(baseURL string, timeout time.Duration) *NominatimGeocoder {
	return &NominatimGeocoder{baseURL: strings.TrimRight(baseURL, "/"), client: newClient(timeout)}
}

func (n *NominatimGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	req := rest.Request{
		Method:  rest.Get,
		BaseURL: n.baseURL + "/reverse",
		Headers: map[string]string{"User-Agent": userAgent, "Accept-Language": "en"},
		QueryParams: map[string]string{
			"format": "jsonv2",
			"lat":    strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":    strconv.FormatFloat(lng, 'f', -1, 64),
		},
	}

	res, err := n.client.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "nominatim reverse")
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("nominatim status %d", res.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal([]byte(res.Body), &body); err != nil {
		return "", errors.Wrap(err, "nominatim body")
	}
	if body.Error != "" || body.DisplayName == "" {
		return "", ErrNoAddress
	}
	return body.DisplayName, nil
}
