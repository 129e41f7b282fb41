package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

// User is the shopper identity with the shipping profile used at checkout.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Phone        string         `gorm:"column:phone;not null;default:''"`
	Address      string         `gorm:"column:address;not null;default:''"`
	City         string         `gorm:"column:city;not null;default:''"`
	State        string         `gorm:"column:state;not null;default:''"`
	Pincode      string         `gorm:"column:pincode;not null;default:''"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.UserRoleCustomer
	}
	return nil
}
