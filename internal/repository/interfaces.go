package repository

import (
	"github.com/kdudkov/goutils/callback"

	"github.com/kdudkov/rigs/pkg/model"
)

// IdentityRepository resolves callers and their roles and wallets.
type IdentityRepository interface {
	Start() error
	Stop()
	CheckAuth(login, password string) bool
	Get(login string) *model.Identity
	List() []*model.Identity
	Put(u *model.Identity) error
	SaveLoginInfo(login string)
	// ChangeCallback is called with every added or changed identity. A removed
	// identity is reported disabled.
	ChangeCallback() *callback.Callback[*model.Identity]
}
