package oracle

import (
	"fmt"
	"sort"

	"yieldplus/core/events"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/lifecycle"
	"yieldplus/native/yield"
)

const (
	// PeriodInterval is the length of one reporting period in seconds. A
	// protocol is updated at most once per period.
	PeriodInterval uint64 = 600
	// DefaultUpdateLimit bounds updateall when no limit is given.
	DefaultUpdateLimit = 20
)

// ErrNothingToUpdate is returned by UpdateAll when every active protocol was
// already updated in the current period.
var ErrNothingToUpdate = fmt.Errorf("%w: nothing to update", common.ErrInvalidState)

// CurrentPeriod returns the start of the period ts falls into.
func CurrentPeriod(ts uint64) uint64 {
	return ts / PeriodInterval * PeriodInterval
}

// Result describes one protocol update.
type Result struct {
	Protocol string
	Period   Period
	Elapsed  uint64
}

// Update values a protocol's holdings, records the period, accrues the
// protocol reward and pays the oracle its flat incentive. Nothing is written
// when any step fails.
func (m *Module) Update(signers common.Signers, oracleName, protocol string) (Result, error) {
	var res Result
	err := m.st.Atomic(func() error {
		cfg, ycfg, o, err := m.prepare(signers, oracleName)
		if err != nil {
			return err
		}
		p, err := m.yield.Protocol(protocol)
		if err != nil {
			return err
		}
		res, err = m.update(cfg, ycfg, o, p)
		return err
	})
	return res, err
}

// UpdateAll updates up to limit active protocols that have not been updated
// in the current period, least recently updated first. A limit of zero uses
// DefaultUpdateLimit.
func (m *Module) UpdateAll(signers common.Signers, oracleName string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, common.Invalid("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultUpdateLimit
	}
	var results []Result
	err := m.st.Atomic(func() error {
		cfg, ycfg, o, err := m.prepare(signers, oracleName)
		if err != nil {
			return err
		}
		active, err := m.yield.ActiveProtocols()
		if err != nil {
			return err
		}
		period := CurrentPeriod(m.clock.Now())
		candidates := active[:0]
		for _, p := range active {
			if updatedIn(p, period) {
				continue
			}
			candidates = append(candidates, p)
		}
		if len(candidates) == 0 {
			return ErrNothingToUpdate
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].PeriodAt != candidates[j].PeriodAt {
				return candidates[i].PeriodAt < candidates[j].PeriodAt
			}
			return candidates[i].Name < candidates[j].Name
		})
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		for _, p := range candidates {
			res, err := m.update(cfg, ycfg, o, p)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func updatedIn(p *yield.Protocol, period uint64) bool {
	return p.PeriodAt != 0 && CurrentPeriod(p.PeriodAt) == period
}

func (m *Module) prepare(signers common.Signers, oracleName string) (Config, yield.Config, *Oracle, error) {
	cfg, err := m.begin()
	if err != nil {
		return Config{}, yield.Config{}, nil, err
	}
	if err := common.RequireAuth(signers, oracleName); err != nil {
		return Config{}, yield.Config{}, nil, err
	}
	o, err := m.Oracle(oracleName)
	if err != nil {
		return Config{}, yield.Config{}, nil, err
	}
	if o.Status != lifecycle.StatusActive {
		return Config{}, yield.Config{}, nil, fmt.Errorf("%w: [oracle=%s] must be active", common.ErrInvalidState, oracleName)
	}
	ycfg, err := m.yield.Config()
	if err != nil {
		return Config{}, yield.Config{}, nil, err
	}
	if ycfg.MaxTVLReport.IsZero() {
		return Config{}, yield.Config{}, nil, fmt.Errorf("%w: [max_tvl_report] is not configured", common.ErrInvalidState)
	}
	if ycfg.Rewards != cfg.Rewards {
		return Config{}, yield.Config{}, nil, fmt.Errorf("%w: reward currencies differ", common.ErrInvalidState)
	}
	return cfg, ycfg, o, nil
}

func (m *Module) update(cfg Config, ycfg yield.Config, o *Oracle, p *yield.Protocol) (Result, error) {
	if p.Status != lifecycle.StatusActive {
		return Result{}, fmt.Errorf("%w: [protocol=%s] must be active", common.ErrInvalidState, p.Name)
	}
	now := m.clock.Now()
	if updatedIn(p, CurrentPeriod(now)) {
		return Result{}, fmt.Errorf("%w: [protocol=%s] is already updated for period %d", common.ErrInvalidState, p.Name, CurrentPeriod(now))
	}

	holdings, err := m.Balances(p.Contracts)
	if err != nil {
		return Result{}, err
	}
	val, err := m.Value(ycfg.Rewards.Symbol, holdings)
	if err != nil {
		return Result{}, err
	}

	elapsed := PeriodInterval
	if p.PeriodAt != 0 {
		elapsed = now - p.PeriodAt
	}
	effective := asset.Clamp(val.TVL.Amount, ycfg.MinTVLReport.Amount, ycfg.MaxTVLReport.Amount)
	amount, err := asset.AccrueReward(effective, ycfg.AnnualRate, elapsed)
	if err != nil {
		return Result{}, err
	}
	if val.TVL.Amount <= ycfg.MinTVLReport.Amount {
		amount = 0
	}
	reward := asset.Asset{Amount: amount, Symbol: ycfg.Rewards.Symbol}

	period := Period{Timestamp: now, TVL: val.TVL, USD: val.USD, Reward: reward}
	if err := m.periods.Append(p.Name, period); err != nil {
		return Result{}, err
	}
	if err := m.yield.Accrue(common.NewSigners(m.self), yield.Report{
		Protocol:  p.Name,
		Timestamp: now,
		Elapsed:   elapsed,
		TVL:       val.TVL,
		USD:       val.USD,
		Reward:    reward,
	}); err != nil {
		return Result{}, err
	}
	retained, err := m.periods.Len(p.Name)
	if err != nil {
		return Result{}, err
	}
	m.emit(events.OracleUpdated{
		Oracle:    o.Name,
		Protocol:  p.Name,
		Timestamp: now,
		TVL:       val.TVL.String(),
		USD:       val.USD.String(),
		Reward:    reward.String(),
		Periods:   retained,
	})

	if err := m.creditIncentive(cfg, o, now); err != nil {
		return Result{}, err
	}
	return Result{Protocol: p.Name, Period: period, Elapsed: elapsed}, nil
}

func (m *Module) creditIncentive(cfg Config, o *Oracle, now uint64) error {
	if !cfg.RewardPerUpdate.IsZero() {
		balance, err := o.Balance.Quantity.Add(cfg.RewardPerUpdate)
		if err != nil {
			return err
		}
		o.Balance.Quantity = balance
		m.emit(events.OracleRewards{
			Oracle:  o.Name,
			Amount:  cfg.RewardPerUpdate.String(),
			Balance: balance.String(),
		})
	}
	o.UpdatedAt = now
	return m.put(o)
}
