package config

import "yieldplus/native/common"

// Accounts names the contract accounts the node hosts.
type Accounts struct {
	Yield     string `toml:"Yield"`
	Oracle    string `toml:"Oracle"`
	Admin     string `toml:"Admin"`
	Metadata  string `toml:"Metadata"`
	PriceFeed string `toml:"PriceFeed"`
}

// RateLimit is the token bucket applied per client on the HTTP surface.
type RateLimit struct {
	PerSecond float64 `toml:"PerSecond"`
	Burst     int     `toml:"Burst"`
}

// Pauses lists modules that refuse mutating actions at startup.
type Pauses struct {
	Yield  bool `toml:"Yield"`
	Oracle bool `toml:"Oracle"`
}

// Modules returns the names of the paused modules.
func (p Pauses) Modules() []string {
	var out []string
	if p.Yield {
		out = append(out, "yield")
	}
	if p.Oracle {
		out = append(out, "oracle")
	}
	return out
}

// Quota defines per-signer action limits within an epoch.
type Quota struct {
	MaxActionsPerEpoch uint32 `toml:"MaxActionsPerEpoch"`
	MaxRowsPerEpoch    uint64 `toml:"MaxRowsPerEpoch"`
	EpochSeconds       uint64 `toml:"EpochSeconds"`
}

// Runtime converts the quota to the form enforced by the node.
func (q Quota) Runtime() common.Quota {
	return common.Quota{
		MaxActionsPerEpoch: q.MaxActionsPerEpoch,
		MaxRowsPerEpoch:    q.MaxRowsPerEpoch,
		EpochSeconds:       q.EpochSeconds,
	}
}

// OracleRunner configures the built-in scheduler that submits updateall on
// behalf of a registered oracle.
type OracleRunner struct {
	Enabled  bool   `toml:"Enabled"`
	Account  string `toml:"Account"`
	Schedule string `toml:"Schedule"`
	Limit    int    `toml:"Limit"`
}

// Logging configures the process logger.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}
