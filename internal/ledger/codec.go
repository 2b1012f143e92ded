package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Details travel as tagged JSON objects, e.g.
// {"type":"transfer","from":"a1","to":"a2",...}. The same encoding is used
// for the JSONB log store, the snapshot cache and the HTTP surface.

type transferJSON struct {
	Type DetailKind `json:"type"`
	Transfer
}

type incomeJSON struct {
	Type DetailKind `json:"type"`
	Income
}

type expenseJSON struct {
	Type DetailKind `json:"type"`
	Expense
}

type securityJSON struct {
	Type DetailKind `json:"type"`
	Security
}

// MarshalDetail encodes one detail with its kind tag.
func MarshalDetail(d Detail) ([]byte, error) {
	switch det := d.(type) {
	case Transfer:
		return json.Marshal(transferJSON{Type: KindTransfer, Transfer: det})
	case Income:
		return json.Marshal(incomeJSON{Type: KindIncome, Income: det})
	case Expense:
		return json.Marshal(expenseJSON{Type: KindExpense, Expense: det})
	case Security:
		return json.Marshal(securityJSON{Type: KindSecurity, Security: det})
	default:
		return nil, fmt.Errorf("unsupported detail kind %q", d.Kind())
	}
}

// UnmarshalDetail decodes one tagged detail object.
func UnmarshalDetail(data []byte) (Detail, error) {
	var tag struct {
		Type DetailKind `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case KindTransfer:
		var d transferJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d.Transfer, nil
	case KindIncome:
		var d incomeJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d.Income, nil
	case KindExpense:
		var d expenseJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d.Expense, nil
	case KindSecurity:
		var d securityJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d.Security, nil
	default:
		return nil, fmt.Errorf("unsupported detail kind %q", tag.Type)
	}
}

type transactionJSON struct {
	ID    TransactionID     `json:"id"`
	Date  time.Time         `json:"date"`
	Order int               `json:"order"`
	Notes string            `json:"notes,omitempty"`
	Det   []json.RawMessage `json:"details"`
}

// MarshalJSON implements json.Marshaler.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	raw := transactionJSON{
		ID:    t.ID,
		Date:  t.Date,
		Order: t.Order,
		Notes: t.Notes,
		Det:   make([]json.RawMessage, 0, len(t.Details)),
	}
	for _, d := range t.Details {
		b, err := MarshalDetail(d)
		if err != nil {
			return nil, err
		}
		raw.Det = append(raw.Det, b)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = raw.ID
	t.Date = raw.Date
	t.Order = raw.Order
	t.Notes = raw.Notes
	t.Details = t.Details[:0]
	for _, rd := range raw.Det {
		d, err := UnmarshalDetail(rd)
		if err != nil {
			return err
		}
		t.Details = append(t.Details, d)
	}
	return nil
}
