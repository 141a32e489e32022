package models

// Role is the kind of principal a user acts as.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// User represents an account of the marketplace.
type User struct {
	BaseModel
	Username string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // never serialized
	Role     Role   `json:"role" gorm:"type:varchar(20);default:buyer" validate:"omitempty,oneof=buyer seller"`
	ShopID   string `json:"shop_id,omitempty" gorm:"type:varchar(36);index"`
}

// Shop is the vendor entity a seller account operates.
type Shop struct {
	BaseModel
	OwnerID string `json:"owner_id" gorm:"type:varchar(36);uniqueIndex"`
	Name    string `json:"name" gorm:"type:varchar(150)"`
}
