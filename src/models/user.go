package models

import (
	"fmt"
	"guilance/src/types"
	"strings"
)

type User struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Email           string `gorm:"uniqueIndex;size:254" json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Mobile          string `json:"mobile,omitempty"`
	IsActive        bool   `gorm:"default:true" json:"is_active"`
	IsEmailVerified bool   `json:"is_email_verified"`

	Registrations []Registration `gorm:"foreignKey:user_id" json:"-"`
	Payments      []Payment      `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}

func (u *User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}
