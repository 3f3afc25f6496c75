package models

import "time"

// User is the per-user record. Credits is the Carmelita credit (CC) balance
// and is only ever written by the credit ledger.
type User struct {
	ID             string          `json:"uid"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Role           Role            `json:"role"`
	BusinessType   string          `json:"businessType"`
	FinancialGoals []FinancialGoal `json:"financialGoals"`
	Credits        int64           `json:"credits"`
	PasswordHash   string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastLogin      *time.Time      `json:"lastLogin,omitempty"`
}

// Profile holds the user-editable fields of a User.
type Profile struct {
	Name           string          `json:"name"`
	BusinessType   string          `json:"businessType"`
	FinancialGoals []FinancialGoal `json:"financialGoals"`
}
