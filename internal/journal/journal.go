package journal

import (
	"context"
	"fmt"

	"dn_farming/internal/models"
	"dn_farming/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Journal — аудит циклов и переносов в Postgres. Опционален: без DSN
// все методы no-op, торговля от базы не зависит.
type Journal struct {
	m *db.PgTxManager
}

func New(m *db.PgTxManager) *Journal {
	return &Journal{m: m}
}

func (j *Journal) Enabled() bool { return j != nil && j.m != nil }

func (j *Journal) EnsureSchema(ctx context.Context) (err error) {
	if !j.Enabled() {
		return nil
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.EnsureSchema: %w", err)
		}
	}()

	return j.m.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS trade_cycles (
				id           text PRIMARY KEY,
				symbol       text NOT NULL,
				leverage     int  NOT NULL,
				margin       float8 NOT NULL,
				extended_side text NOT NULL,
				lighter_side  text NOT NULL,
				size         float8 NOT NULL,
				opened_at    timestamptz NOT NULL,
				closed_at    timestamptz,
				close_reason text,
				final_pnl    float8
			)`)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS rebalance_transfers (
				id            text PRIMARY KEY,
				from_venue    text NOT NULL,
				to_venue      text NOT NULL,
				amount        float8 NOT NULL,
				bridge_fee    float8 NOT NULL,
				withdrawal_id text,
				hop_tx        text,
				deposit_tx    text,
				phase         text NOT NULL,
				fail_reason   text,
				in_flight     bool NOT NULL DEFAULT false,
				started_at    timestamptz NOT NULL,
				finished_at   timestamptz
			)`)
		return err
	})
}

func (j *Journal) CycleOpened(ctx context.Context, c *models.TradeCycle) (err error) {
	if !j.Enabled() {
		return nil
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.CycleOpened: %w", err)
		}
	}()

	return j.m.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO trade_cycles (id, symbol, leverage, margin, extended_side, lighter_side, size, opened_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Symbol, c.Leverage, c.Margin,
			string(c.Legs[0].Side), string(c.Legs[1].Side), c.Legs[0].Size, c.OpenedAt)
		return err
	})
}

func (j *Journal) CycleClosed(ctx context.Context, c *models.TradeCycle, finalPnl float64) (err error) {
	if !j.Enabled() {
		return nil
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.CycleClosed: %w", err)
		}
	}()

	return j.m.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE trade_cycles SET closed_at = $2, close_reason = $3, final_pnl = $4 WHERE id = $1`,
			c.ID, c.ClosedAt, string(c.CloseReason), finalPnl)
		return err
	})
}

func (j *Journal) Transfer(ctx context.Context, tr *models.RebalanceTransfer) (err error) {
	if !j.Enabled() || tr == nil {
		return nil
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Transfer: %w", err)
		}
	}()

	return j.m.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO rebalance_transfers
				(id, from_venue, to_venue, amount, bridge_fee, withdrawal_id, hop_tx, deposit_tx, phase, fail_reason, in_flight, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				phase = EXCLUDED.phase, fail_reason = EXCLUDED.fail_reason,
				in_flight = EXCLUDED.in_flight, finished_at = EXCLUDED.finished_at`,
			tr.ID, tr.FromVenue, tr.ToVenue, tr.Amount, tr.BridgeFee,
			tr.WithdrawalID, tr.HopTxHash, tr.DepositTx, string(tr.Phase),
			tr.FailReason, tr.InFlight, tr.StartedAt, tr.FinishedAt)
		return err
	})
}
