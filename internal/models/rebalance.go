package models

import "time"

type RebalancePhase string

const (
	PhaseCheck       RebalancePhase = "check"
	PhaseWithdraw    RebalancePhase = "withdraw"
	PhaseAwaitBridge RebalancePhase = "await_bridge"
	PhaseOnchainHop  RebalancePhase = "onchain_hop"
	PhaseDeposit     RebalancePhase = "deposit"
	PhaseVerify      RebalancePhase = "verify"
	PhaseDone        RebalancePhase = "done"
	PhaseFailed      RebalancePhase = "failed"
)

// RebalanceTransfer — один перенос средств между биржами через Arbitrum.
// Создаётся сагой, живёт ровно одну сагу. Single-flight на пару бирж.
type RebalanceTransfer struct {
	ID           string
	FromVenue    string
	ToVenue      string
	Amount       float64
	BridgeFee    float64
	WithdrawalID string
	// адрес на Arbitrum, куда приходит withdraw и откуда делается deposit
	ChainAddress string
	HopTxHash    string
	DepositTx    string
	Phase        RebalancePhase
	FailReason   string
	StartedAt    time.Time
	FinishedAt   time.Time
	// true если deposit отправлен, но кредит на бирже не дождались —
	// средства в пути, ручное вмешательство не требуется
	InFlight bool
}
