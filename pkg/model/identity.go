package model

import (
	"log/slog"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type Identity struct {
	Login     string     `gorm:"primaryKey;size:255" yaml:"login"`
	Password  string     `gorm:"not null" yaml:"password"`
	Roles     []string   `gorm:"serializer:json" yaml:"roles,omitempty"`
	Wallets   []string   `gorm:"serializer:json" yaml:"wallets,omitempty"`
	Disabled  bool       `gorm:"not null;default:false" yaml:"disabled,omitempty"`
	LastLogin *time.Time `yaml:"-"`
}

type IdentityDTO struct {
	Login     string     `json:"login"`
	Roles     []string   `json:"roles,omitempty"`
	Wallets   []string   `json:"wallets,omitempty"`
	Disabled  bool       `json:"disabled"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func (u *Identity) GetLogin() string {
	if u == nil {
		return ""
	}

	return u.Login
}

// Identities returns the login followed by every attached wallet.
func (u *Identity) Identities() []string {
	if u == nil {
		return nil
	}

	res := make([]string, 0, len(u.Wallets)+1)
	res = append(res, u.Login)

	for _, w := range u.Wallets {
		if w != "" && w != u.Login {
			res = append(res, w)
		}
	}

	return res
}

// SameAs reports whether o carries the same credentials, roles and wallets.
func (u *Identity) SameAs(o *Identity) bool {
	if u == nil || o == nil {
		return u == o
	}

	return u.Login == o.Login && u.Password == o.Password && u.Disabled == o.Disabled &&
		slices.Equal(u.Roles, o.Roles) && slices.Equal(u.Wallets, o.Wallets)
}

func (u *Identity) CheckPassword(password string) bool {
	if u == nil {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	if err != nil {
		slog.Debug("password check failed", slog.String("login", u.Login), slog.Any("error", err))
		return false
	}

	return true
}

func (u *Identity) SetPassword(password string) error {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	u.Password = string(b)

	return nil
}

func (u *Identity) DTO() *IdentityDTO {
	if u == nil {
		return nil
	}

	return &IdentityDTO{
		Login:     u.Login,
		Roles:     u.Roles,
		Wallets:   u.Wallets,
		Disabled:  u.Disabled,
		LastLogin: u.LastLogin,
	}
}
