package ledger

import (
	"fmt"

	"github.com/kvasha/bookkeeper/pkg/money"
)

// Validator checks structural and arithmetic well-formedness of a single
// transaction before it is admitted. A transaction failing any check is
// rejected wholesale; details are never partially admitted.
type Validator struct {
	entities   EntityResolver
	currencies CurrencyResolver
}

// NewValidator creates a validator over the given lookups.
func NewValidator(entities EntityResolver, currencies CurrencyResolver) *Validator {
	return &Validator{entities: entities, currencies: currencies}
}

// ValidatedTransaction marks a transaction that passed admission checks.
// Only validated transactions reach the log.
type ValidatedTransaction struct {
	tx *Transaction
}

// Transaction returns the underlying admitted transaction.
func (v *ValidatedTransaction) Transaction() *Transaction { return v.tx }

// Validate runs the admission checks in order: non-empty details, entity
// resolution, amount sign/precision/currency, transfer leg equality.
// Validation is deterministic: re-validating an admitted transaction yields
// the same verdict.
func (v *Validator) Validate(book BookID, tx *Transaction) (*ValidatedTransaction, error) {
	if len(tx.Details) == 0 {
		return nil, &ValidationError{Transaction: tx.ID, DetailIndex: -1, Err: ErrEmptyTransaction}
	}

	for i, d := range tx.Details {
		var err error
		switch det := d.(type) {
		case Transfer:
			err = v.checkTransfer(book, det)
		case Income:
			err = v.checkIncome(book, det)
		case Expense:
			err = v.checkExpense(book, det)
		case Security:
			err = v.checkSecurity(book, det)
		default:
			err = fmt.Errorf("unsupported detail kind %q", d.Kind())
		}
		if err != nil {
			return nil, &ValidationError{Transaction: tx.ID, DetailIndex: i, Err: err}
		}
	}

	return &ValidatedTransaction{tx: tx}, nil
}

// checkAmount verifies a single money magnitude against its account: not
// negative, same currency as the account, and lossless at the account's
// effective precision.
func (v *Validator) checkAmount(m money.Money, account *Account) error {
	if m.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, m)
	}
	if m.Currency() != string(account.Currency) {
		return fmt.Errorf("%w: %s posted to %s account %s",
			ErrCurrencyMismatch, m.Currency(), account.Currency, account.ID)
	}
	def, ok := v.currencies.Precision(account.Currency)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, account.Currency)
	}
	if _, err := m.RoundTo(account.EffectivePrecision(def)); err != nil {
		return err
	}
	return nil
}

func (v *Validator) account(book BookID, id AccountID) (*Account, error) {
	acc, ok := v.entities.Account(book, id)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", ErrUnknownEntity, id)
	}
	return acc, nil
}

func (v *Validator) bucket(book BookID, id BucketID) (*Bucket, error) {
	b, ok := v.entities.Bucket(book, id)
	if !ok {
		return nil, fmt.Errorf("%w: bucket %s", ErrUnknownEntity, id)
	}
	return b, nil
}

func (v *Validator) checkTransfer(book BookID, t Transfer) error {
	from, err := v.account(book, t.From)
	if err != nil {
		return err
	}
	to, err := v.account(book, t.To)
	if err != nil {
		return err
	}
	if err := v.checkAmount(t.FromAmount, from); err != nil {
		return err
	}
	if err := v.checkAmount(t.ToAmount, to); err != nil {
		return err
	}
	// Legs may differ only across currencies.
	if from.Currency == to.Currency && !t.FromAmount.Equal(t.ToAmount) {
		return fmt.Errorf("%w: %s -> %s", ErrAmountMismatch, t.FromAmount, t.ToAmount)
	}
	return nil
}

func (v *Validator) checkIncome(book BookID, in Income) error {
	if _, err := v.bucket(book, in.From); err != nil {
		return err
	}
	to, err := v.account(book, in.To)
	if err != nil {
		return err
	}
	return v.checkAmount(in.Amount, to)
}

func (v *Validator) checkExpense(book BookID, ex Expense) error {
	from, err := v.account(book, ex.From)
	if err != nil {
		return err
	}
	if _, err := v.bucket(book, ex.To); err != nil {
		return err
	}
	return v.checkAmount(ex.Amount, from)
}

func (v *Validator) checkSecurity(book BookID, s Security) error {
	acc, err := v.account(book, s.SettlementAccount)
	if err != nil {
		return err
	}
	if acc.Type != AccountBrokerage {
		return fmt.Errorf("%w: account %s is %s", ErrNotBrokerage, acc.ID, acc.Type)
	}
	if s.Quantity.IsZero() {
		return ErrZeroQuantity
	}
	def, ok := v.currencies.Precision(acc.Currency)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, acc.Currency)
	}
	if !s.Quantity.FitsPrecision(acc.EffectivePrecision(def)) {
		return fmt.Errorf("%w: quantity %s at precision %d",
			money.ErrPrecisionLoss, s.Quantity, acc.EffectivePrecision(def))
	}
	return v.checkAmount(s.Amount, acc)
}
