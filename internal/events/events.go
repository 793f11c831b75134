package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Event names carried on the wire.
const (
	NameLoanDisbursed     = "loan.disbursed"
	NameRepaymentRecorded = "loan.repayment_recorded"
	NameLoanCompleted     = "loan.completed"
	NameLoanDefaulted     = "loan.defaulted"
	NameUnitsTransferred  = "units.transferred"
)

// Event is a domain event handed to the external notification dispatcher.
// The engine never sends notifications itself.
type Event interface {
	Name() string
}

type LoanDisbursed struct {
	LoanID      string          `json:"loan_id"`
	AccountID   string          `json:"account_id"`
	MeterNo     string          `json:"meter_no"`
	Amount      decimal.Decimal `json:"amount"`
	Units       decimal.Decimal `json:"units"`
	Token       string          `json:"token"`
	TokenExpiry time.Time       `json:"token_expiry"`
}

func (LoanDisbursed) Name() string { return NameLoanDisbursed }

type RepaymentRecorded struct {
	LoanID           string          `json:"loan_id"`
	AccountID        string          `json:"account_id"`
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Units            decimal.Decimal `json:"units"`
	Outstanding      decimal.Decimal `json:"outstanding"`
}

func (RepaymentRecorded) Name() string { return NameRepaymentRecorded }

type LoanCompleted struct {
	LoanID    string `json:"loan_id"`
	AccountID string `json:"account_id"`
}

func (LoanCompleted) Name() string { return NameLoanCompleted }

type LoanDefaulted struct {
	LoanID      string          `json:"loan_id"`
	AccountID   string          `json:"account_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func (LoanDefaulted) Name() string { return NameLoanDefaulted }

type UnitsTransferred struct {
	TransactionID   string          `json:"transaction_id"`
	SenderMeterNo   string          `json:"sender_meter_no"`
	ReceiverMeterNo string          `json:"receiver_meter_no"`
	Units           decimal.Decimal `json:"units"`
}

func (UnitsTransferred) Name() string { return NameUnitsTransferred }

// Publisher fans events out to whatever notifier is subscribed. Publishing
// happens after commit; a failed publish must not undo the mutation, so
// implementations log and move on rather than erroring the caller's flow.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// RedisPublisher publishes events on a redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(envelope{
		Event:      event.Name(),
		OccurredAt: time.Now(),
		Payload:    event,
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, body).Err()
}

// NopPublisher drops events, used in tests and when no notifier is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
