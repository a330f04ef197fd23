package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Collection caps carried over from the browser build of the app.
const (
	MaxRecentRoundUps = 12
	MaxSaveLogs       = 25
)

// BillsCategory is the category assigned to expenses generated by paying a bill.
const BillsCategory = "Bills"

type (
	TransactionType string

	// Date is a calendar date without time-of-day.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID       string          `json:"id"`
		Type     TransactionType `json:"type"`
		Amount   Money           `json:"amount"`
		Category string          `json:"category"`
		Date     Date            `json:"date"`
		Notes    string          `json:"notes,omitempty"`
	}

	// TransactionDraft is the input for create and full-field update.
	// A zero Date means "today".
	TransactionDraft struct {
		Type     TransactionType
		Amount   Money
		Category string
		Date     Date
		Notes    string
	}

	Bill struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Amount  Money  `json:"amount"`
		DueDate Date   `json:"dueDate"`
		Paid    bool   `json:"paid"`
	}

	SavingsGoal struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Target Money  `json:"target"`
		Saved  Money  `json:"saved"`
	}

	Settings struct {
		Currency      string `json:"currency"`
		Theme         string `json:"theme"`
		DefaultView   string `json:"defaultView"`
		MonthlyBudget Money  `json:"monthlyBudget"`
		DailyBudget   Money  `json:"dailyBudget"`
	}

	// SettingsPatch carries the fields of a shallow settings merge.
	// Nil fields are left untouched.
	SettingsPatch struct {
		Currency      *string
		Theme         *string
		DefaultView   *string
		MonthlyBudget *Money
		DailyBudget   *Money
	}

	// RoundUpRecord is one spare-change contribution produced by an expense.
	RoundUpRecord struct {
		ID            string `json:"id"`
		TransactionID string `json:"transactionId"`
		Amount        Money  `json:"amount"`
		Category      string `json:"category"`
		Date          Date   `json:"date"`
	}

	// SaveLog is one audit entry describing a profile persistence attempt.
	SaveLog struct {
		ID        string    `json:"id"`
		When      time.Time `json:"when"`
		Persisted bool      `json:"persisted"`
		Message   string    `json:"message"`
	}

	// Identity is the authenticated user bound to the active storage tier.
	Identity struct {
		UserID    string `json:"userId"`
		UserName  string `json:"userName"`
		UserEmail string `json:"userEmail"`
	}

	// Totals are recomputed on every read, never stored.
	Totals struct {
		Income  Money `json:"income"`
		Expense Money `json:"expense"`
		Balance Money `json:"balance"`
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidTarget = errors.New("invalid target amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrNotesTooLong  = errors.New("notes too long (max 200 characters)")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(other Date) bool {
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

// MarshalJSON encodes the date as "YYYY-MM-DD", matching the snapshot layout.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Validate checks the boundary rules for a draft. The ledger itself only
// enforces the balance invariant; everything else is rejected here.
func (td TransactionDraft) Validate() error {
	if !td.Type.Valid() {
		return ErrInvalidType
	}
	if err := td.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(td.Category) == "" {
		return ErrEmptyCategory
	}
	if len(td.Notes) > 200 {
		return ErrNotesTooLong
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.DueDate.Validate(); err != nil {
		return err
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidTarget
	}
	if g.Saved.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ProgressPercent is capped at 100 for display; the stored saved amount may
// exceed the target.
func (g SavingsGoal) ProgressPercent() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	pct := float64(g.Saved.Cents) / float64(g.Target.Cents) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// DefaultSettings are seeded on first load for a user.
func DefaultSettings() Settings {
	return Settings{
		Currency:    "USD",
		Theme:       ThemeLight,
		DefaultView: "dashboard",
	}
}

// Apply merges the non-nil fields of the patch into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.DefaultView != nil {
		s.DefaultView = *p.DefaultView
	}
	if p.MonthlyBudget != nil {
		s.MonthlyBudget = *p.MonthlyBudget
	}
	if p.DailyBudget != nil {
		s.DailyBudget = *p.DailyBudget
	}
	return s
}
