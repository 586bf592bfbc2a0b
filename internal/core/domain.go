package core

import (
	"strings"
	"time"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountCurrent  AccountType = "CURRENT"
	AccountCredit   AccountType = "CREDIT"
	AccountLoan     AccountType = "LOAN"
)

type (
	RecurringInterval string
	TransactionType   string
	TransactionStatus string
	AccountType       string

	User struct {
		ID        string
		Email     string
		Name      string
		TokenHash string
		CreatedAt time.Time
	}

	Account struct {
		ID        string
		UserID    string
		Name      string
		Type      AccountType
		Balance   Money
		IsDefault bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID                string
		UserID            string
		AccountID         string
		Type              TransactionType
		Amount            Money
		Date              time.Time
		Description       string
		Category          string
		ReceiptURL        string
		IsRecurring       bool
		RecurringInterval RecurringInterval
		LastProcessed     *time.Time
		NextRecurringDate *time.Time
		Status            TransactionStatus
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	Budget struct {
		ID            string
		UserID        string
		Amount        Money
		LastAlertSent *time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

// ExpenseCategories and IncomeCategories form the fixed category set.
// A transaction's category must match its type.
var (
	ExpenseCategories = []string{
		"housing", "transportation", "groceries", "utilities",
		"entertainment", "food", "shopping", "healthcare",
		"education", "personal", "travel", "insurance",
		"gifts", "bills", "other-expense",
	}
	IncomeCategories = []string{
		"salary", "freelance", "investments", "business",
		"rental", "other-income",
	}
)

// ValidCategory reports whether name belongs to the category set for the
// given transaction type.
func ValidCategory(t TransactionType, name string) bool {
	set := ExpenseCategories
	if t == Income {
		set = IncomeCategories
	}
	for _, c := range set {
		if c == name {
			return true
		}
	}
	return false
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (a AccountType) Valid() bool {
	switch a {
	case AccountChecking, AccountSavings, AccountCurrent, AccountCredit, AccountLoan:
		return true
	}
	return false
}

// SignedCents returns the balance delta this transaction applies to its
// account: positive for INCOME, negative for EXPENSE.
func (t Transaction) SignedCents() int64 {
	if t.Type == Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return ErrNameTooLong
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if a.Balance.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !ValidCategory(t.Type, t.Category) {
		return ErrInvalidCategory
	}
	if t.IsRecurring && !t.RecurringInterval.Valid() {
		return ErrInvalidInterval
	}
	if !t.IsRecurring && t.RecurringInterval != "" {
		return ErrInvalidInterval
	}
	return nil
}

func (b Budget) Validate() error {
	return b.Amount.Validate()
}
