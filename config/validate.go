package config

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"yieldplus/native/metadata"
)

// MaxUpdateLimit caps the scheduler's updateall batch.
const MaxUpdateLimit = 100

// Validate rejects configurations the node cannot start with.
func Validate(c *Config) error {
	for label, account := range map[string]string{
		"accounts.Yield":     c.Accounts.Yield,
		"accounts.Oracle":    c.Accounts.Oracle,
		"accounts.Admin":     c.Accounts.Admin,
		"accounts.Metadata":  c.Accounts.Metadata,
		"accounts.PriceFeed": c.Accounts.PriceFeed,
	} {
		if !metadata.IsName(account) {
			return fmt.Errorf("%s: %q is not a valid account name", label, account)
		}
	}
	if c.Accounts.Yield == c.Accounts.Oracle {
		return fmt.Errorf("accounts: yield and oracle contracts must differ")
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if (c.Quota.MaxActionsPerEpoch > 0 || c.Quota.MaxRowsPerEpoch > 0) && c.Quota.EpochSeconds == 0 {
		return fmt.Errorf("quota: EpochSeconds required when a per-epoch limit is set")
	}
	switch c.Backend {
	case BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("Backend: %q is not one of %s, %s", c.Backend, BackendLevelDB, BackendBolt)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("MaxConnections must not be negative")
	}
	if c.Oracle.Enabled {
		if !metadata.IsName(c.Oracle.Account) {
			return fmt.Errorf("oracle: %q is not a valid account name", c.Oracle.Account)
		}
		if _, err := cron.ParseStandard(c.Oracle.Schedule); err != nil {
			return fmt.Errorf("oracle: schedule %q: %w", c.Oracle.Schedule, err)
		}
	}
	if c.Oracle.Limit < 0 || c.Oracle.Limit > MaxUpdateLimit {
		return fmt.Errorf("oracle: limit must be within [0, %d]", MaxUpdateLimit)
	}
	return nil
}
