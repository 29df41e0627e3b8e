package model

import "time"

// Allocation records one successful allocation. It is returned to the caller
// and published as an event.
type Allocation struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Number    uint64    `json:"number"`
	Price     Amount    `json:"price"`
	Paid      Amount    `json:"paid"`
	Refund    Amount    `json:"refund"`
	Strategy  Strategy  `json:"strategy"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}

// Withdrawal records proceeds paid out to the operator.
type Withdrawal struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Amount    Amount    `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Deposit records funds received outside of an allocation request.
type Deposit struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Amount    Amount    `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// PriceChange records an operator price update.
type PriceChange struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Previous  Amount    `json:"previous"`
	Current   Amount    `json:"current"`
	CreatedAt time.Time `json:"createdAt"`
}

// Materialization records one pool initialization step.
type Materialization struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Appended  uint64    `json:"appended"`
	Cursor    uint64    `json:"cursor"`
	PoolSize  int       `json:"poolSize"`
	Complete  bool      `json:"complete"`
	CreatedAt time.Time `json:"createdAt"`
}

// Info summarises the allocator for dashboards and the CLI.
type Info struct {
	Name           string   `json:"name"`
	Strategy       Strategy `json:"strategy"`
	Universe       Universe `json:"universe"`
	Price          Amount   `json:"price"`
	Proceeds       Amount   `json:"proceeds"`
	TotalAllocated int      `json:"totalAllocated"`
	Remaining      uint64   `json:"remaining"`
	PoolSize       int      `json:"poolSize"`
	Cursor         uint64   `json:"cursor"`
}

// Grant records identifiers an operator issued without payment.
type Grant struct {
	ID          string       `json:"id"`
	Operator    string       `json:"operator"`
	Assignments []Assignment `json:"assignments"`
	CreatedAt   time.Time    `json:"createdAt"`
}
