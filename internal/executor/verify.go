package executor

import (
	"context"
	"fmt"
	"time"

	"dn_farming/internal/helper"
	"dn_farming/internal/models"
	"dn_farming/pkg/logger"
)

// Причины провала верификации.
const (
	VerifyLighterNotOpened  = "lighter_not_opened"
	VerifyExtendedNotOpened = "extended_not_opened"
	VerifyBothNotOpened     = "both_not_opened"
	VerifySizeMismatch      = "size_mismatch"
)

// VerifyError — типизированный провал проверки открытия.
type VerifyError struct {
	Reason string
	Detail string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify failed: %s (%s)", e.Reason, e.Detail)
}

// Verify — чистое чтение: опрашиваем обе биржи пока обе позиции не
// появятся с противоположными знаками и расхождением ног в допуске.
// Повторный вызов после успеха снова вернёт успех.
func (e *Executor) Verify(ctx context.Context, symbol string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	var extPos, litPos *models.Position
	for {
		var err error
		extPos, err = e.extended.GetPosition(ctx, symbol)
		if err != nil {
			logger.Error("Verify extended: %v", err)
		}
		litPos, err = e.lighter.GetPosition(ctx, symbol)
		if err != nil {
			logger.Error("Verify lighter: %v", err)
		}

		if extPos != nil && litPos != nil {
			break
		}
		if time.Now().After(deadline) {
			switch {
			case extPos == nil && litPos == nil:
				return &VerifyError{Reason: VerifyBothNotOpened, Detail: symbol}
			case extPos == nil:
				return &VerifyError{Reason: VerifyExtendedNotOpened, Detail: symbol}
			default:
				return &VerifyError{Reason: VerifyLighterNotOpened, Detail: symbol}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	// знаки обязаны быть противоположными
	if extPos.SizeSigned*litPos.SizeSigned >= 0 {
		return &VerifyError{
			Reason: VerifySizeMismatch,
			Detail: fmt.Sprintf("same sign: extended=%.6f lighter=%.6f", extPos.SizeSigned, litPos.SizeSigned),
		}
	}

	// и размеры близки (допуск в % от большей ноги)
	bigger := extPos.Size
	if litPos.Size > bigger {
		bigger = litPos.Size
	}
	diffPct := helper.Abs(extPos.Size-litPos.Size) / bigger * 100
	if diffPct > e.sizeTolerancePct {
		return &VerifyError{
			Reason: VerifySizeMismatch,
			Detail: fmt.Sprintf("size diff %.2f%% > %.2f%%: extended=%.6f lighter=%.6f", diffPct, e.sizeTolerancePct, extPos.Size, litPos.Size),
		}
	}

	logger.Info("✅ пара подтверждена: extended %s %.6f / lighter %s %.6f (диф %.2f%%)",
		extPos.Side, extPos.Size, litPos.Side, litPos.Size, diffPct)
	return nil
}
