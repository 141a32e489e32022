package services

import "bazaar/internal/models"

// Principal is the authenticated caller of a service operation.
type Principal struct {
	UserID string
	Role   models.Role
	ShopID string
}

// IsAdmin reports whether the caller is a platform admin.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// OwnsShop reports whether the caller operates shopID.
func (p Principal) OwnsShop(shopID string) bool {
	return p.Role == models.RoleSeller && p.ShopID != "" && p.ShopID == shopID
}

// CanManageShop reports whether the caller may act on behalf of shopID.
func (p Principal) CanManageShop(shopID string) bool {
	return p.IsAdmin() || p.OwnsShop(shopID)
}

func (p Principal) requireUser() error {
	if p.UserID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func (p Principal) requireSeller() error {
	if err := p.requireUser(); err != nil {
		return err
	}
	if p.Role != models.RoleSeller || p.ShopID == "" {
		return ErrSellerOnly
	}
	return nil
}

func (p Principal) requireAdmin() error {
	if err := p.requireUser(); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}
