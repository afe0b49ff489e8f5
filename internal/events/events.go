package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderCreated  = "OrderCreated"
	OrderUpdated  = "OrderUpdated"
	OrderDeleted  = "OrderDeleted"
	StockAdjusted = "StockAdjusted"
)

const (
	TopicOrderEvents   = "order.events"
	TopicStockAdjusted = "inventory.stock.adjusted"
)

// PartitionKey keeps every event of one aggregate on one partition.
func PartitionKey(id string) []byte { return []byte(id) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

type OrderPayload struct {
	OrderID string          `json:"order_id"`
	Seller  string          `json:"seller"`
	Client  string          `json:"client"`
	State   string          `json:"state"`
	Total   decimal.Decimal `json:"total"`
}

type StockLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Amount    int    `json:"amount"`
	Remaining int    `json:"remaining"`
}

type StockAdjustedPayload struct {
	OrderID string      `json:"order_id"`
	Lines   []StockLine `json:"lines"`
}

// Decode unwraps the payload of env into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	err := json.Unmarshal(env.Payload, &t)
	return t, err
}
