package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryFood           Category = "Food"
	CategoryRent           Category = "Rent"
	CategoryUtilities      Category = "Utilities"
	CategoryTransportation Category = "Transportation"
	CategoryEntertainment  Category = "Entertainment"
	CategoryOther          Category = "Other"
)

const (
	Daily     Frequency = "Daily"
	Weekly    Frequency = "Weekly"
	BiWeekly  Frequency = "Bi-weekly"
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Yearly    Frequency = "Yearly"
)

const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"
)

// DateLayout is the wire format of every calendar date.
const DateLayout = "2006-01-02"

type (
	Category  string
	Frequency string

	// Date is a calendar date without a time-of-day component, held at UTC midnight.
	Date struct {
		time.Time
	}

	RecurringExpense struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		Frequency   Frequency       `json:"frequency"`
		NextPayment Date            `json:"nextPayment"`
		Active      bool            `json:"active"`
	}

	Expense struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		AddedBy     string          `json:"addedBy,omitempty"`
	}

	TeamMember struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email,omitempty"`
		Role     string `json:"role,omitempty"`
		JoinedAt Date   `json:"joinedAt"`
	}

	// MonthTrend is the expense total of one calendar month.
	MonthTrend struct {
		Year  int             `json:"year"`
		Month int             `json:"month"`
		Label string          `json:"label"`
		Total decimal.Decimal `json:"total"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrTransport        = errors.New("store transport failure")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDate      = errors.New("invalid date")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidRole      = errors.New("invalid role")
)

var categories = []Category{
	CategoryFood, CategoryRent, CategoryUtilities,
	CategoryTransportation, CategoryEntertainment, CategoryOther,
}

var frequencies = []Frequency{Daily, Weekly, BiWeekly, Monthly, Quarterly, Yearly}

// Categories returns the supported categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Frequencies returns the supported frequencies in display order.
func Frequencies() []Frequency {
	return append([]Frequency(nil), frequencies...)
}

// ParseCategory matches s against the known categories ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// CategoryOrOther is ParseCategory with unknown or empty values mapped to Other.
func CategoryOrOther(s string) Category {
	c, err := ParseCategory(s)
	if err != nil {
		return CategoryOther
	}
	return c
}

// ParseRole matches s against Admin and Member ignoring case. An empty
// role is a Member.
func ParseRole(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "", strings.EqualFold(s, RoleMember):
		return RoleMember, nil
	case strings.EqualFold(s, RoleAdmin):
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// ParseFrequency matches s against the known frequencies ignoring case.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	for _, f := range frequencies {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// CanonicalFrequency returns the canonical spelling of a known frequency,
// or the input unchanged when it is not recognized.
func CanonicalFrequency(s string) Frequency {
	if f, err := ParseFrequency(s); err == nil {
		return f
	}
	return Frequency(s)
}

// Known reports whether f is one of the supported frequencies.
func (f Frequency) Known() bool {
	for _, k := range frequencies {
		if f == k {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day from t, keeping the calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks a user-submitted recurring expense.
func (r RecurringExpense) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: description", ErrMissingField)
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if !r.Frequency.Known() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	return r.NextPayment.Validate()
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description", ErrMissingField)
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return err
	}
	return nil
}
