package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no row because the record changed.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("record already exists")
	// ErrInsufficientStock is returned when a reservation exceeds the available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrLimitReached is returned when a coupon has no redemptions left.
	ErrLimitReached = errors.New("coupon usage limit reached")
)

// Store gives access to every repository and runs units of work atomically.
type Store interface {
	Users() UserRepository
	Shops() ShopRepository
	Products() ProductRepository
	Coupons() CouponRepository
	Orders() OrderRepository
	Checkouts() CheckoutRepository
	Refunds() RefundRepository
	Withdrawals() WithdrawalRepository
	// Transaction runs fn against a Store bound to a single database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is the GORM implementation of Store.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Users() UserRepository             { return NewGORMUserRepository(s.db) }
func (s *GORMStore) Shops() ShopRepository             { return NewGORMShopRepository(s.db) }
func (s *GORMStore) Products() ProductRepository       { return NewGORMProductRepository(s.db) }
func (s *GORMStore) Coupons() CouponRepository         { return NewGORMCouponRepository(s.db) }
func (s *GORMStore) Orders() OrderRepository           { return NewGORMOrderRepository(s.db) }
func (s *GORMStore) Checkouts() CheckoutRepository     { return NewGORMCheckoutRepository(s.db) }
func (s *GORMStore) Refunds() RefundRepository         { return NewGORMRefundRepository(s.db) }
func (s *GORMStore) Withdrawals() WithdrawalRepository { return NewGORMWithdrawalRepository(s.db) }

// Transaction implements Store.
func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}

// translate maps GORM errors onto the package sentinels.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
