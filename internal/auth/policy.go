package auth

import (
	"github.com/kdudkov/rigs/pkg/model"
	"github.com/kdudkov/rigs/pkg/util"
)

const (
	RoleDefaultAdmin   = "admin"
	RoleMissionsAdmin  = "missions_admin"
	RoleProposalsAdmin = "proposals_admin"
	RoleReviewer       = "reviewer"
)

// Caller is the resolved identity behind one invocation.
type Caller struct {
	Login   string
	Roles   util.Set[string]
	Wallets []string
}

func NewCaller(login string, roles ...string) *Caller {
	return &Caller{Login: login, Roles: util.NewSet(roles...)}
}

func CallerFromIdentity(u *model.Identity) *Caller {
	if u == nil {
		return nil
	}

	c := NewCaller(u.Login, u.Roles...)
	c.Wallets = u.Wallets

	return c
}

func (c *Caller) GetLogin() string {
	if c == nil {
		return ""
	}

	return c.Login
}

// Identities is the login plus attached wallets.
func (c *Caller) Identities() []string {
	if c == nil {
		return nil
	}

	return (&model.Identity{Login: c.Login, Wallets: c.Wallets}).Identities()
}

type Authorizer interface {
	IsParent(c *Caller) bool
	IsDefaultAdmin(c *Caller) bool
	HasRole(c *Caller, role string) bool
}

// Policy grants the parent capability to exactly one configured identity.
// Roles come from the caller.
type Policy struct {
	parent string
}

var _ Authorizer = &Policy{}

func NewPolicy(parent string) *Policy {
	return &Policy{parent: parent}
}

func (p *Policy) Parent() string {
	return p.parent
}

func (p *Policy) IsParent(c *Caller) bool {
	return c != nil && p.parent != "" && c.Login == p.parent
}

func (p *Policy) IsDefaultAdmin(c *Caller) bool {
	return p.HasRole(c, RoleDefaultAdmin)
}

func (p *Policy) HasRole(c *Caller, role string) bool {
	return c != nil && c.Roles != nil && c.Roles.Has(role)
}

// AnyOf is true when the caller is default admin or holds one of roles.
func AnyOf(a Authorizer, c *Caller, roles ...string) bool {
	if a.IsDefaultAdmin(c) {
		return true
	}

	for _, r := range roles {
		if a.HasRole(c, r) {
			return true
		}
	}

	return false
}
