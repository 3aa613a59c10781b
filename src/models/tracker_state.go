package models

import "time"

// -----------------------------------------------------------------------------
// Display state shared with the dashboard (REST, WebSocket and gRPC)
// -----------------------------------------------------------------------------

type MAssetView struct {
	Symbol   string   `json:"symbol"`
	Ticker   *MTicker `json:"ticker,omitempty"`
	Loading  bool     `json:"loading"`
	Error    string   `json:"error,omitempty"`
	Variance float64  `json:"variance"`
}

type MTrackerState struct {
	Type            string                `json:"type"` // "INITIAL" or "UPDATE"
	Symbols         []string              `json:"symbols"`
	Assets          map[string]MAssetView `json:"assets"`
	LastRefreshedAt *time.Time            `json:"last_refreshed_at,omitempty"`
	Loading         bool                  `json:"loading"`
}

// -----------------------------------------------------------------------------
// MAssetCommand for client messages
// -----------------------------------------------------------------------------

type MAssetCommand struct {
	Command string `json:"command"` // "add", "remove" or "subscribe"
	Symbol  string `json:"symbol"`
}
