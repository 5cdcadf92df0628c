package yield

import (
	"strings"

	"yieldplus/core/events"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
)

// Accrue credits a reported period to an active protocol. Only the oracle
// contract may report.
func (r *Registry) Accrue(signers common.Signers, report Report) error {
	cfg, err := r.begin()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(signers, cfg.OracleContract); err != nil {
		return err
	}
	p, err := r.Protocol(report.Protocol)
	if err != nil {
		return err
	}
	if p.Status != lifecycle.StatusActive {
		return common.Invalid("[protocol=%s] must be active", p.Name)
	}
	if report.Reward.Symbol != cfg.Rewards.Symbol || report.TVL.Symbol != cfg.Rewards.Symbol {
		return common.Invalid("report must be in %s", cfg.Rewards.Symbol)
	}
	if report.Timestamp < p.PeriodAt {
		return common.Invalid("[protocol=%s] report at %d precedes period %d", p.Name, report.Timestamp, p.PeriodAt)
	}
	balance, err := p.Balance.Quantity.Add(report.Reward)
	if err != nil {
		return err
	}
	p.Balance.Quantity = balance
	p.TVL = report.TVL
	p.USD = report.USD
	p.PeriodAt = report.Timestamp
	p.UpdatedAt = r.now()
	if err := r.put(p); err != nil {
		return err
	}
	r.emit(events.ProtocolRewards{
		Protocol: p.Name,
		PeriodAt: report.Timestamp,
		Elapsed:  report.Elapsed,
		TVL:      report.TVL.String(),
		USD:      report.USD.String(),
		Reward:   report.Reward.String(),
		Balance:  balance.String(),
	})
	return nil
}

// Claim pays out a protocol's balance to receiver, or to the protocol itself
// when receiver is empty. A zero balance succeeds without a transfer.
func (r *Registry) Claim(signers common.Signers, name, receiver, memo string) error {
	p, err := r.edit(signers, name)
	if err != nil {
		return err
	}
	receiver = strings.TrimSpace(receiver)
	if receiver == "" {
		receiver = name
	}
	if !metadata.IsName(receiver) {
		return common.Invalid("[receiver=%s] is not a valid name", receiver)
	}
	if memo == "" {
		memo = DefaultClaimMemo
	}
	if p.Balance.Quantity.IsZero() {
		return nil
	}
	payout := p.Balance
	return r.st.Atomic(func() error {
		p.Balance.Quantity = asset.Zero(payout.Quantity.Symbol)
		p.ClaimedAt = r.now()
		if err := r.put(p); err != nil {
			return err
		}
		if err := r.tokens.Transfer(r.self, receiver, payout, memo); err != nil {
			return err
		}
		r.emit(events.ProtocolClaimed{
			Protocol: name,
			Receiver: receiver,
			Amount:   payout.Quantity.String(),
			Memo:     memo,
		})
		return nil
	})
}
