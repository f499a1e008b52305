package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// razorpayOrderRequest is the body of POST /orders
type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// razorpayOrder is an order entity
type razorpayOrder struct {
	ID         string        `json:"id"`
	Entity     string        `json:"entity"`
	Amount     int64         `json:"amount"`
	AmountPaid int64         `json:"amount_paid"`
	AmountDue  int64         `json:"amount_due"`
	Currency   string        `json:"currency"`
	Receipt    string        `json:"receipt"`
	Status     string        `json:"status"`
	Attempts   int           `json:"attempts"`
	Notes      razorpayNotes `json:"notes"`
	CreatedAt  int64         `json:"created_at"`
}

// razorpayErrorResponse wraps API errors
type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Source      string `json:"source,omitempty"`
		Step        string `json:"step,omitempty"`
		Reason      string `json:"reason,omitempty"`
		Field       string `json:"field,omitempty"`
	} `json:"error"`
}

// razorpayWebhook is the envelope of every webhook delivery
type razorpayWebhook struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	Payload   struct {
		Payment *struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment,omitempty"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// razorpayPayment is a payment entity
type razorpayPayment struct {
	ID        string        `json:"id"`
	Entity    string        `json:"entity"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    string        `json:"status"`
	OrderID   string        `json:"order_id"`
	Method    string        `json:"method"`
	Captured  bool          `json:"captured"`
	Email     string        `json:"email,omitempty"`
	Contact   string        `json:"contact,omitempty"`
	Notes     razorpayNotes `json:"notes"`
	CreatedAt int64         `json:"created_at"`
}

// razorpayNotes decodes the notes object. Razorpay sends an empty array
// when no notes were set and keeps JSON nulls and numbers as given.
type razorpayNotes map[string]string

func (n *razorpayNotes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.HasPrefix(trimmed, []byte("[")) {
		*n = razorpayNotes{}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(razorpayNotes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	*n = out
	return nil
}
