package models

import "time"

// ExpenseTag classifies expenses by urgency.
type ExpenseTag string

const (
	TagRed    ExpenseTag = "RED"
	TagYellow ExpenseTag = "YELLOW"
	TagGreen  ExpenseTag = "GREEN"
)

// RecordType separates income from expenses.
type RecordType string

const (
	RecordIncome  RecordType = "INCOME"
	RecordExpense RecordType = "EXPENSE"
)

// FinancialGoal is a savings target owned by a user.
type FinancialGoal struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	TargetAmount  float64 `json:"targetAmount"`
	CurrentAmount float64 `json:"currentAmount"`
	Progress      float64 `json:"progress"`
	IsCompleted   bool    `json:"isCompleted"`
	WateringCount int     `json:"wateringCount"`
}

// FinancialRecord is a user-authored income or expense entry.
type FinancialRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Type        RecordType `json:"type"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Date        time.Time  `json:"date"`
	Tag         ExpenseTag `json:"tag,omitempty"`
}
