package rebalance

import (
	"context"
	"fmt"
	"time"

	"dn_farming/internal/helper"
	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RebalanceIfNeeded выравнивает балансы двух бирж. Порядок проверок
// важен: insufficient funds ловим ДО первого необратимого шага.
func (s *Saga) RebalanceIfNeeded(ctx context.Context, a, b Venue) (*models.RebalanceTransfer, error) {
	if !s.acquire() {
		return nil, ErrInProgress
	}
	defer s.release()

	balA, err := s.readBalance(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("rebalance check: %w", err)
	}
	balB, err := s.readBalance(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("rebalance check: %w", err)
	}

	total := balA.Total + balB.Total
	logger.Info("балансы: %s=$%.2f %s=$%.2f, всего $%.2f", a.Name(), balA.Total, b.Name(), balB.Total, total)

	// guard: на пару нужно 2 маржи, иначе перенос бессмысленен
	if total < 2*s.margin {
		return nil, &models.InsufficientFundsError{Required: 2 * s.margin, Available: total}
	}

	// переносим при дивергенции выше порога, либо когда одной из бирж
	// не хватает на маржу (ногу там не открыть, хотя суммарно средств достаточно)
	divergence := helper.Abs(balA.Total - balB.Total)
	poorest := balA.Total
	if balB.Total < poorest {
		poorest = balB.Total
	}
	if divergence < s.threshold && poorest >= s.margin {
		logger.Info("дивергенция $%.2f ниже порога $%.2f, ребаланс не нужен", divergence, s.threshold)
		return nil, nil
	}

	from, to := a, b
	if balB.Total > balA.Total {
		from, to = b, a
	}

	// половина дивергенции уравнивает счета
	amount := divergence / 2
	if amount < 1 {
		// выводить меньше доллара дороже комиссии бриджа
		return nil, nil
	}
	return s.run(ctx, from, to, amount)
}

// Consolidate переносит всё доступное с from на to (финальный сбор
// средств на основную биржу).
func (s *Saga) Consolidate(ctx context.Context, from, to Venue) (*models.RebalanceTransfer, error) {
	if !s.acquire() {
		return nil, ErrInProgress
	}
	defer s.release()

	bal, err := s.readBalance(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	if bal.Available <= 1 {
		logger.Info("на %s нечего консолидировать ($%.2f)", from.Name(), bal.Available)
		return nil, nil
	}
	return s.run(ctx, from, to, bal.Available)
}

// run — фазы WITHDRAW -> AWAIT_BRIDGE -> [ONCHAIN_HOP] -> DEPOSIT -> VERIFY.
// Каждая фаза перечитывает авторитетные балансы, а не доверяет прошлой.
func (s *Saga) run(ctx context.Context, from, to Venue, amount float64) (*models.RebalanceTransfer, error) {
	tr := &models.RebalanceTransfer{
		ID:           uuid.NewString(),
		FromVenue:    from.Name(),
		ToVenue:      to.Name(),
		Amount:       amount,
		ChainAddress: from.SettlementAddress(),
		Phase:        models.PhaseCheck,
		StartedAt:    time.Now(),
	}
	logger.Info("🔄 ребаланс %s: %s -> %s, $%.2f", tr.ID, from.Name(), to.Name(), amount)

	// WITHDRAW: 5xx ретраим — до сабмита идёт идемпотентная прелюдия
	// (конфиг бриджа, котировка), которая и даёт большинство отказов
	tr.Phase = models.PhaseWithdraw
	var wd models.WithdrawResult
	err := helper.Retry(ctx, 3, 2*time.Second, models.IsTransient, func() error {
		var werr error
		wd, werr = from.Withdraw(ctx, amount, tr.ChainAddress)
		return werr
	})
	if err != nil {
		return s.fail(tr, fmt.Errorf("withdraw from %s: %w", from.Name(), err))
	}
	tr.WithdrawalID = wd.WithdrawalID
	tr.BridgeFee = wd.BridgeFee

	// AWAIT_BRIDGE: до withdraw деньги уже могли лежать on-chain,
	// ждём прироста относительно стартового остатка
	tr.Phase = models.PhaseAwaitBridge
	before, err := s.chain.USDCBalance(ctx, tr.ChainAddress)
	if err != nil {
		before = decimal.Zero
	}
	expected := before.Add(decimal.NewFromFloat(wd.AmountAfter * bridgeArrivalFactor))

	observed, err := s.chain.WaitForBalance(ctx, tr.ChainAddress, expected, bridgeWaitTimeout, bridgeWaitInterval)
	if err != nil {
		exp, _ := expected.Float64()
		obs, _ := observed.Float64()
		return s.fail(tr, &models.BridgeTimeoutError{Address: tr.ChainAddress, Expected: exp, Observed: obs})
	}

	// ONCHAIN_HOP: если депозит уходит с другого адреса
	depositOrigin := to.SettlementAddress()
	if depositOrigin != tr.ChainAddress {
		tr.Phase = models.PhaseOnchainHop
		hopHash, err := s.chain.TransferUSDC(ctx, depositOrigin, observed)
		if err != nil {
			return s.fail(tr, fmt.Errorf("onchain hop: %w", err))
		}
		tr.HopTxHash = hopHash
	}

	// DEPOSIT: заводим фактический on-chain остаток, не расчётный
	tr.Phase = models.PhaseDeposit
	onchain, err := s.chain.USDCBalance(ctx, depositOrigin)
	if err != nil {
		return s.fail(tr, fmt.Errorf("deposit balance read: %w", err))
	}
	depositAmount, _ := onchain.Float64()
	if depositAmount <= 0 {
		return s.fail(tr, fmt.Errorf("deposit: on-chain balance is zero"))
	}

	destBefore, err := s.readBalance(ctx, to)
	if err != nil {
		return s.fail(tr, fmt.Errorf("deposit: %w", err))
	}

	dep, err := to.Deposit(ctx, depositAmount)
	if err != nil {
		return s.fail(tr, fmt.Errorf("deposit to %s: %w", to.Name(), err))
	}
	tr.DepositTx = dep.TxHash

	// VERIFY: ждём кредит на бирже
	tr.Phase = models.PhaseVerify
	if err := s.awaitCredit(ctx, to, destBefore.Total, depositAmount); err != nil {
		// деньги в пути, не потеряны — репортим частичный успех
		logger.Error("⚠️ ребаланс %s: кредит на %s не дождались: %v", tr.ID, to.Name(), err)
		tr.InFlight = true
	}

	tr.Phase = models.PhaseDone
	tr.FinishedAt = time.Now()
	logger.Info("✅ ребаланс %s завершён: $%.2f %s -> %s (fee $%.2f)", tr.ID, amount, from.Name(), to.Name(), tr.BridgeFee)
	return tr, nil
}

func (s *Saga) awaitCredit(ctx context.Context, to Venue, before, deposit float64) error {
	deadline := time.Now().Add(creditWaitTimeout)
	want := before + deposit*creditArrivalShare

	for {
		bal, err := s.readBalance(ctx, to)
		if err == nil && bal.Total >= want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("credit timeout: %s has $%.2f, want $%.2f", to.Name(), bal.Total, want)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(creditWaitInterval):
		}
	}
}

// readBalance — чтение с ретраем на 5xx.
func (s *Saga) readBalance(ctx context.Context, v Venue) (models.Balance, error) {
	var bal models.Balance
	err := helper.Retry(ctx, 3, 2*time.Second, models.IsTransient, func() error {
		var err error
		bal, err = v.GetBalance(ctx)
		return err
	})
	return bal, err
}

func (s *Saga) fail(tr *models.RebalanceTransfer, err error) (*models.RebalanceTransfer, error) {
	tr.Phase = models.PhaseFailed
	tr.FailReason = err.Error()
	tr.FinishedAt = time.Now()
	logger.Error("❌ ребаланс %s провален на фазе: %v", tr.ID, err)
	return tr, err
}
