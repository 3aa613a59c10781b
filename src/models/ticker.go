package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MTicker is a point-in-time price/volume snapshot for one asset.
// Values are kept as the strings the exchange sends.
type MTicker struct {
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
	High string `json:"high,omitempty"`
	Low  string `json:"low,omitempty"`
	Vol  string `json:"vol,omitempty"`
	Last string `json:"last,omitempty"`
	Date int64  `json:"date"` // seconds since epoch

	// Degraded marks the zero-valued fallback produced after retries ran out.
	Degraded bool `json:"degraded"`
}

// ObservedAt is Date converted to a wall-clock time.
func (t MTicker) ObservedAt() time.Time {
	return time.UnixMilli(t.Date * 1000)
}

// MarshalJSON adds the derived observed_at field for the display layer.
func (t MTicker) MarshalJSON() ([]byte, error) {
	type plain MTicker
	return json.Marshal(struct {
		plain
		ObservedAt time.Time `json:"observed_at"`
	}{plain(t), t.ObservedAt().UTC()})
}

// -----------------------------------------------------------------------------

// MTickerResponse is the body of GET {api}/{SYMBOL}/ticker.
type MTickerResponse struct {
	Ticker *struct {
		Buy  string          `json:"buy"`
		Sell string          `json:"sell"`
		High string          `json:"high"`
		Low  string          `json:"low"`
		Vol  string          `json:"vol"`
		Last string          `json:"last"`
		Date json.RawMessage `json:"date"`
	} `json:"ticker"`
}

// ToTicker validates the envelope and converts it.
func (r *MTickerResponse) ToTicker() (MTicker, error) {
	if r.Ticker == nil {
		return MTicker{}, fmt.Errorf("response has no ticker")
	}

	date, err := parseEpochSeconds(r.Ticker.Date)
	if err != nil {
		return MTicker{}, fmt.Errorf("invalid ticker date: %w", err)
	}

	return MTicker{
		Buy:  r.Ticker.Buy,
		Sell: r.Ticker.Sell,
		High: r.Ticker.High,
		Low:  r.Ticker.Low,
		Vol:  r.Ticker.Vol,
		Last: r.Ticker.Last,
		Date: date,
	}, nil
}

// parseEpochSeconds accepts 1700000000, 1700000000.25 or "1700000000".
func parseEpochSeconds(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing date")
	}
	s := string(bytes.Trim(raw, `"`))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// -----------------------------------------------------------------------------

// FallbackTicker is the zero-valued snapshot used when a fetch cannot complete.
func FallbackTicker(now time.Time) MTicker {
	return MTicker{
		Buy:      "0",
		Sell:     "0",
		High:     "0",
		Low:      "0",
		Vol:      "0",
		Last:     "0",
		Date:     now.Unix(),
		Degraded: true,
	}
}
