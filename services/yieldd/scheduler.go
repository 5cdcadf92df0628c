package yieldd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/robfig/cron/v3"

	"yieldplus/config"
	"yieldplus/native/common"
	"yieldplus/native/oracle"
)

// Scheduler runs updateall on a cron schedule as the configured oracle.
type Scheduler struct {
	node   *Node
	cfg    config.OracleRunner
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler validates the schedule and prepares the runner. Start must be
// called before any tick fires.
func NewScheduler(node *Node, cfg config.OracleRunner, logger *slog.Logger) (*Scheduler, error) {
	if node == nil {
		return nil, errors.New("node required")
	}
	if cfg.Account == "" {
		return nil, errors.New("oracle account required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		node:   node,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With(slog.String("component", "oracle-runner"), slog.String("oracle", cfg.Account)),
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, func() { _, _ = s.Tick(context.Background()) }); err != nil {
		return nil, fmt.Errorf("oracle schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins firing ticks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("oracle runner started", slog.String("schedule", s.cfg.Schedule))
}

// Stop halts the schedule and waits for a running tick to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Tick submits a single updateall and returns the receipt. A round with
// nothing to update is not an error.
func (s *Scheduler) Tick(ctx context.Context) (*Receipt, error) {
	account, _ := json.Marshal(s.cfg.Account)
	limit := json.RawMessage(strconv.Itoa(s.cfg.Limit))
	receipt, err := s.node.Execute(ctx, Action{
		Contract: s.node.Accounts().Oracle,
		Name:     "updateall",
		Args:     []json.RawMessage{account, limit},
		Signers:  common.NewSigners(s.cfg.Account),
	})
	switch {
	case err == nil:
		s.logger.Info("oracle round committed", slog.String("receipt", receipt.ID), slog.Int("events", len(receipt.Events)))
		return receipt, nil
	case errors.Is(err, oracle.ErrNothingToUpdate):
		s.logger.Debug("nothing to update")
		return nil, nil
	default:
		s.logger.Warn("oracle round failed", slog.String("error", err.Error()))
		return nil, err
	}
}
