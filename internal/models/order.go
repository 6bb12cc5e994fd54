package models

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// OrderStatus — нормализованный статус на границе VenueClient.
// Биржи отдают зоопарк строк ('OK'/'ok'/'success'), наружу только это.
type OrderStatus string

const (
	OrderAccepted OrderStatus = "accepted"
	OrderRejected OrderStatus = "rejected"
	OrderTimeout  OrderStatus = "timeout"
)

type OrderRequest struct {
	Symbol     string
	Side       string // "buy"/"sell"
	Size       float64
	Type       OrderType
	Price      float64 // только для limit
	ReduceOnly bool
	PostOnly   bool
}

type OrderResult struct {
	OrderID string
	Status  OrderStatus
	Reason  string // причина реджекта, если Rejected
}

func (r OrderResult) Ok() bool { return r.Status == OrderAccepted }

type WithdrawResult struct {
	Status       OrderStatus
	WithdrawalID string
	BridgeFee    float64
	AmountAfter  float64
}

type DepositResult struct {
	Status OrderStatus
	TxHash string
}
