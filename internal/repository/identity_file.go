package repository

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kdudkov/goutils/callback"
	"gopkg.in/yaml.v3"

	"github.com/kdudkov/rigs/pkg/model"
)

var _ IdentityRepository = &IdentityFileRepository{}

// IdentityFileRepository keeps identities in a yaml file and reloads it when
// the file is written.
type IdentityFileRepository struct {
	file   string
	logger *slog.Logger
	users  map[string]*model.Identity

	changes *callback.Callback[*model.Identity]
	watcher *fsnotify.Watcher
	done    chan struct{}

	mx sync.RWMutex
}

func NewIdentityFileRepository(file string) *IdentityFileRepository {
	r := &IdentityFileRepository{
		logger:  slog.Default().With("logger", "identities"),
		file:    file,
		users:   make(map[string]*model.Identity),
		changes: callback.New[*model.Identity](),
	}

	if err := r.load(); err != nil {
		r.logger.Error("error loading identities file", slog.Any("error", err))
	}

	if len(r.users) == 0 {
		r.logger.Warn("no identities found in " + file)
	}

	return r
}

// ReadIdentities parses a yaml identities file. A missing file is empty.
func ReadIdentities(file string) ([]*model.Identity, error) {
	dat, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	users := make([]*model.Identity, 0)

	if err := yaml.Unmarshal(dat, &users); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return users, nil
}

// WriteIdentities stores identities sorted by login.
func WriteIdentities(file string, users []*model.Identity) error {
	sort.Slice(users, func(i, j int) bool {
		return users[i].Login < users[j].Login
	})

	dat, err := yaml.Marshal(users)
	if err != nil {
		return err
	}

	tmp := file + ".tmp"

	if err := os.WriteFile(tmp, dat, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, file)
}

func (r *IdentityFileRepository) load() error {
	users, err := ReadIdentities(r.file)
	if err != nil {
		return err
	}

	m := make(map[string]*model.Identity, len(users))

	for _, u := range users {
		if u.Login != "" {
			m[u.Login] = u
		}
	}

	r.mx.Lock()
	old := r.users
	r.users = m
	r.mx.Unlock()

	for login, u := range m {
		if !u.SameAs(old[login]) {
			r.changes.AddMessage(u)
		}
	}

	for login := range old {
		if _, ok := m[login]; !ok {
			r.changes.AddMessage(&model.Identity{Login: login, Disabled: true})
		}
	}

	return nil
}

func (r *IdentityFileRepository) ChangeCallback() *callback.Callback[*model.Identity] {
	return r.changes
}

func (r *IdentityFileRepository) Start() error {
	var err error

	if r.watcher, err = fsnotify.NewWatcher(); err != nil {
		return err
	}

	// watch the directory, editors and WriteIdentities replace the file
	if err := r.watcher.Add(filepath.Dir(r.file)); err != nil {
		_ = r.watcher.Close()
		return err
	}

	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		for {
			select {
			case event, ok := <-r.watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != filepath.Clean(r.file) {
					continue
				}

				r.logger.Debug(fmt.Sprintf("event: %v", event))

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					r.logger.Info("identities file is modified, reloading")

					if err := r.load(); err != nil {
						r.logger.Error("error", slog.Any("error", err))
					}
				}
			case err, ok := <-r.watcher.Errors:
				if !ok {
					return
				}

				r.logger.Error("error", slog.Any("error", err))
			}
		}
	}()

	return nil
}

func (r *IdentityFileRepository) Stop() {
	if r.watcher != nil {
		_ = r.watcher.Close()
		<-r.done
	}
}

func (r *IdentityFileRepository) CheckAuth(login, password string) bool {
	r.mx.RLock()
	defer r.mx.RUnlock()

	if u, ok := r.users[login]; ok && !u.Disabled {
		return u.CheckPassword(password)
	}

	return false
}

func (r *IdentityFileRepository) Get(login string) *model.Identity {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return r.users[login]
}

func (r *IdentityFileRepository) List() []*model.Identity {
	r.mx.RLock()
	defer r.mx.RUnlock()

	res := make([]*model.Identity, 0, len(r.users))
	for _, u := range r.users {
		res = append(res, u)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Login < res[j].Login
	})

	return res
}

// Put adds or replaces an identity and rewrites the file.
func (r *IdentityFileRepository) Put(u *model.Identity) error {
	if u == nil || u.Login == "" {
		return fmt.Errorf("empty login")
	}

	r.mx.Lock()
	defer r.mx.Unlock()

	changed := !u.SameAs(r.users[u.Login])
	r.users[u.Login] = u

	list := make([]*model.Identity, 0, len(r.users))
	for _, v := range r.users {
		list = append(list, v)
	}

	if err := WriteIdentities(r.file, list); err != nil {
		return err
	}

	if changed {
		r.changes.AddMessage(u)
	}

	return nil
}

func (r *IdentityFileRepository) SaveLoginInfo(login string) {
	// no-op
}
