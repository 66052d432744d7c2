package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"klunkaz/pkg/registry"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Book is an in-process balance ledger keyed by identity.
type Book struct {
	mu        sync.Mutex
	balances  map[registry.Identity]int64
	unlimited bool
}

type Option func(*Book)

// Unlimited makes the book accept every payment without tracking balances.
func Unlimited() Option {
	return func(b *Book) { b.unlimited = true }
}

func NewBook(opts ...Option) *Book {
	b := &Book{balances: make(map[registry.Identity]int64)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Book) Deposit(who registry.Identity, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balances[who]
	if bal > 0 && amount > math.MaxInt64-bal {
		return fmt.Errorf("deposit for %s: %w", who, ErrInvalidAmount)
	}
	b.balances[who] = bal + amount
	return nil
}

func (b *Book) Balance(who registry.Identity) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[who]
}

// Settle moves p.Amount from payer to payee.
func (b *Book) Settle(_ context.Context, p registry.Payment) error {
	if p.Amount < 0 {
		return ErrInvalidAmount
	}
	if p.Amount == 0 || b.unlimited {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(p.Payer, p.Payee, p.Amount)
}

// Reverse undoes a previous Settle of p.
func (b *Book) Reverse(_ context.Context, p registry.Payment) error {
	if p.Amount < 0 {
		return ErrInvalidAmount
	}
	if p.Amount == 0 || b.unlimited {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.move(p.Payee, p.Payer, p.Amount); err != nil {
		return fmt.Errorf("reverse %s: %w", p.Reference, err)
	}
	return nil
}

func (b *Book) move(from, to registry.Identity, amount int64) error {
	if b.balances[from] < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from, b.balances[from], amount, ErrInsufficientFunds)
	}
	if to != from && b.balances[to] > 0 && amount > math.MaxInt64-b.balances[to] {
		return fmt.Errorf("credit for %s: %w", to, ErrInvalidAmount)
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}
