// Package drawer tracks a cash-drawer (caja) session and reconciles the cash
// counted at close against what the recorded movements say should be there.
//
// The summary is derived on every call and never stored: CurrentCash is the
// opening float plus the signed sum of cash-settled movements.
package drawer

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"licoreria-pos/apperr"
	"licoreria-pos/model"
	"licoreria-pos/money"
)

var (
	ErrAlreadyOpen     = apperr.BusinessRule("drawer_already_open", "a cash drawer session is already open")
	ErrNoOpenSession   = apperr.BusinessRule("drawer_not_open", "no cash drawer session is open")
	ErrNegativeFloat   = apperr.Validation("negative_opening_float", "opening float cannot be negative")
	ErrNegativeCount   = apperr.Validation("negative_counted_cash", "counted cash cannot be negative")
	ErrInvalidMovement = apperr.Validation("invalid_movement", "movement amount must be greater than 0")
)

type Status int

const (
	NoSession Status = iota
	Open
	Closed
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "none"
	}
}

type Session struct {
	ID           int64
	OpenedAt     time.Time
	OpeningFloat decimal.Decimal
	Status       Status
	ClosedAt     time.Time
}

type Movement struct {
	ID          int64
	Kind        model.MovementKind
	Amount      decimal.Decimal
	Concept     string
	Method      model.PaymentMethod
	Source      model.MovementSource
	ReferenceID int64
	At          time.Time
}

// signedCash is the movement's effect on the physical cash in the drawer.
func (m Movement) signedCash() decimal.Decimal {
	if m.Method != model.MethodCash {
		return decimal.Zero
	}
	if m.Kind == model.Expense {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Drawer is a single session and its movements. The zero value has no
// session. Not safe for concurrent use.
type Drawer struct {
	session   Session
	movements []Movement
}

func New() *Drawer { return &Drawer{} }

func (d *Drawer) Session() Session { return d.session }

func (d *Drawer) Status() Status { return d.session.Status }

func (d *Drawer) Movements() []Movement {
	out := make([]Movement, len(d.movements))
	copy(out, d.movements)
	return out
}

// Open starts a session. A closed drawer may be reopened as a new session;
// its movements are discarded.
func (d *Drawer) Open(id int64, openingFloat decimal.Decimal, at time.Time) error {
	if d.session.Status == Open {
		return ErrAlreadyOpen
	}
	if openingFloat.IsNegative() {
		return ErrNegativeFloat
	}
	d.session = Session{ID: id, OpenedAt: at, OpeningFloat: openingFloat, Status: Open}
	d.movements = nil
	return nil
}

// Record appends a movement to the open session.
func (d *Drawer) Record(m Movement) error {
	if d.session.Status != Open {
		return ErrNoOpenSession
	}
	if !m.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidMovement, m.Amount)
	}
	d.movements = append(d.movements, m)
	return nil
}

// Summary is recomputed from the session and its movements.
type Summary struct {
	OpeningFloat    decimal.Decimal
	CurrentCash     decimal.Decimal
	IncomeByMethod  map[model.PaymentMethod]decimal.Decimal
	ExpenseByMethod map[model.PaymentMethod]decimal.Decimal
	TotalIncome     decimal.Decimal
	TotalExpense    decimal.Decimal
	// Balance is TotalIncome − TotalExpense over every method.
	Balance        decimal.Decimal
	Sales          int
	Purchases      int
	CreditPayments int
	Manual         int
}

// Operations is the count shown on the close screen.
func (s Summary) Operations() int { return s.Sales + s.Purchases + s.CreditPayments }

func (d *Drawer) Summary() Summary {
	s := Summary{
		OpeningFloat:    d.session.OpeningFloat,
		CurrentCash:     d.session.OpeningFloat,
		IncomeByMethod:  map[model.PaymentMethod]decimal.Decimal{},
		ExpenseByMethod: map[model.PaymentMethod]decimal.Decimal{},
		TotalIncome:     decimal.Zero,
		TotalExpense:    decimal.Zero,
	}
	for _, m := range d.movements {
		s.CurrentCash = s.CurrentCash.Add(m.signedCash())
		switch m.Kind {
		case model.Income:
			s.IncomeByMethod[m.Method] = s.IncomeByMethod[m.Method].Add(m.Amount)
			s.TotalIncome = s.TotalIncome.Add(m.Amount)
		case model.Expense:
			s.ExpenseByMethod[m.Method] = s.ExpenseByMethod[m.Method].Add(m.Amount)
			s.TotalExpense = s.TotalExpense.Add(m.Amount)
		}
		switch m.Source {
		case model.SourceSale:
			s.Sales++
		case model.SourcePurchase:
			s.Purchases++
		case model.SourceCreditPayment:
			s.CreditPayments++
		default:
			s.Manual++
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// Outcome classifies a close.
type Outcome string

const (
	Balanced Outcome = "cuadrada"
	Shortage Outcome = "faltante"
	Surplus  Outcome = "sobrante"
)

// Reconciliation is the result of counting the drawer at close.
type Reconciliation struct {
	Expected decimal.Decimal
	Counted  decimal.Decimal
	// Variance is Counted − Expected.
	Variance  decimal.Decimal
	Magnitude decimal.Decimal
	Outcome   Outcome
}

// Classify maps a variance to its outcome; anything under a cent balances.
func Classify(variance decimal.Decimal) Outcome {
	switch {
	case money.NegligibleDiff(variance):
		return Balanced
	case variance.IsNegative():
		return Shortage
	default:
		return Surplus
	}
}

// Reconcile compares counted cash against expected without changing state.
func Reconcile(expected, counted decimal.Decimal) Reconciliation {
	variance := counted.Sub(expected)
	return Reconciliation{
		Expected:  expected,
		Counted:   counted,
		Variance:  variance,
		Magnitude: variance.Abs(),
		Outcome:   Classify(variance),
	}
}

// Close reconciles the counted cash and ends the session.
func (d *Drawer) Close(counted decimal.Decimal, at time.Time) (Reconciliation, error) {
	if counted.IsNegative() {
		return Reconciliation{}, ErrNegativeCount
	}
	if d.session.Status != Open {
		return Reconciliation{}, ErrNoOpenSession
	}
	rec := Reconcile(d.Summary().CurrentCash, counted)
	d.session.Status = Closed
	d.session.ClosedAt = at
	return rec, nil
}

// Restore rebuilds a drawer from an upstream session and its movements.
// Movements with a non-positive amount are skipped. A nil session yields a
// drawer with no session.
func Restore(s *model.DrawerSession, movements []model.Movement) (*Drawer, error) {
	d := New()
	if s == nil {
		return d, nil
	}
	if err := d.Open(s.ID, s.OpeningFloat, s.OpenedAt.Time); err != nil {
		return nil, err
	}
	for _, m := range movements {
		err := d.Record(Movement{
			ID:          m.ID,
			Kind:        m.Kind,
			Amount:      m.Amount,
			Concept:     m.Concept,
			Method:      m.Method,
			Source:      m.ReferenceType,
			ReferenceID: m.ReferenceID,
			At:          m.Date.Time,
		})
		if err != nil && !errors.Is(err, ErrInvalidMovement) {
			return nil, err
		}
	}
	if s.Status == model.DrawerClosed {
		d.session.Status = Closed
		if s.ClosedAt != nil {
			d.session.ClosedAt = s.ClosedAt.Time
		}
	}
	return d, nil
}
