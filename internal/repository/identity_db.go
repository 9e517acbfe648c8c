package repository

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kdudkov/goutils/callback"

	"github.com/kdudkov/rigs/internal/cache"
	"github.com/kdudkov/rigs/internal/database"
	"github.com/kdudkov/rigs/pkg/model"
)

var _ IdentityRepository = &IdentityDbRepository{}

// IdentityDbRepository keeps identities in the identities table. An empty
// table is seeded from the yaml file on Start.
type IdentityDbRepository struct {
	logger  *slog.Logger
	file    string
	cache   *cache.Cache[string, *model.Identity]
	dbm     *database.DatabaseManager
	changes *callback.Callback[*model.Identity]
}

func NewIdentityDbRepository(file string, dbm *database.DatabaseManager) *IdentityDbRepository {
	r := &IdentityDbRepository{
		file:    file,
		logger:  slog.With(slog.String("logger", "identities_db")),
		dbm:     dbm,
		changes: callback.New[*model.Identity](),
	}

	r.cache = cache.NewWithTTL[string, *model.Identity](time.Second*10, r.loadIdentity)

	return r
}

func (r *IdentityDbRepository) loadIdentity(login string) *model.Identity {
	if login == "" {
		return nil
	}

	return r.dbm.IdentityQuery().Login(login).One()
}

func (r *IdentityDbRepository) Start() error {
	if r.dbm.IdentityQuery().Count() > 0 || r.file == "" {
		return nil
	}

	users, err := ReadIdentities(r.file)
	if err != nil {
		return err
	}

	for _, u := range users {
		if u.Login == "" {
			continue
		}

		if err := r.dbm.Save(u); err != nil {
			return err
		}
	}

	r.logger.Info(fmt.Sprintf("%d identities imported from %s", len(users), r.file))

	return nil
}

func (r *IdentityDbRepository) Stop() {
	// no-op
}

func (r *IdentityDbRepository) CheckAuth(login, password string) bool {
	u := r.cache.Load(login)

	if u == nil || u.Disabled {
		return false
	}

	return u.CheckPassword(password)
}

func (r *IdentityDbRepository) Get(login string) *model.Identity {
	return r.cache.Load(login)
}

func (r *IdentityDbRepository) List() []*model.Identity {
	return r.dbm.IdentityQuery().Get()
}

func (r *IdentityDbRepository) Put(u *model.Identity) error {
	if u == nil || u.Login == "" {
		return fmt.Errorf("empty login")
	}

	if err := r.dbm.Save(u); err != nil {
		return err
	}

	r.cache.Invalidate(u.Login)
	r.changes.AddMessage(u)

	return nil
}

func (r *IdentityDbRepository) ChangeCallback() *callback.Callback[*model.Identity] {
	return r.changes
}

func (r *IdentityDbRepository) SaveLoginInfo(login string) {
	if login == "" {
		return
	}

	if err := r.dbm.IdentityQuery().Login(login).Update(map[string]any{"last_login": time.Now()}); err != nil {
		r.logger.Debug("can't save login info", slog.String("login", login), slog.Any("error", err))
	}
}
