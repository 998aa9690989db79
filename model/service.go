// Package model is a small user domain described in the default catalog. It
// exercises each lifetime: the repository is a singleton, the service is
// transient and the request log is scoped.
package model

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/Ngone6325/graft/catalog"
	"github.com/Ngone6325/graft/store"
)

func init() {
	catalog.Register[*UserRepo](
		catalog.WithConstructor(NewUserRepo),
		catalog.RegisterAs(store.Singleton, reflect.TypeFor[IUserRepo]()),
	)
	catalog.Register[*UserService](
		catalog.WithConstructor(NewUserService),
		catalog.RegisterAs(store.Transient, reflect.TypeFor[IUserService]()),
	)
	catalog.Register[*UserLog](
		catalog.WithConstructor(NewUserLog),
		catalog.RegisterAs(store.Scoped, reflect.TypeFor[IUserLog]()),
	)
}

// IUserRepo user repository interface (Singleton)
type IUserRepo interface {
	GetUserID() int64
	GetRepoUUID() string
}

// UserRepo IUserRepo implementation (Singleton)
type UserRepo struct {
	DBConfig string
	UUID     string
}

// NewUserRepo records a unique id so callers can tell instances apart.
func NewUserRepo() *UserRepo {
	repo := &UserRepo{
		DBConfig: "mysql:127.0.0.1:3306/graft?charset=utf8",
		UUID:     uuid.NewString(),
	}
	slog.Debug("constructed", "type", "UserRepo", "lifetime", store.Singleton, "uuid", repo.UUID)
	return repo
}

func (r *UserRepo) GetUserID() int64    { return 10086 }
func (r *UserRepo) GetRepoUUID() string { return r.UUID }

// IUserService user service interface (Transient)
type IUserService interface {
	GetUserName() string
	GetRepoUUID() string
	GetServiceUUID() string
}

// UserService IUserService implementation (Transient)
type UserService struct {
	Repo  IUserRepo
	UUID  string
	Audit Notifier `inject:""`
}

func NewUserService(repo IUserRepo) *UserService {
	svc := &UserService{Repo: repo, UUID: uuid.NewString()}
	slog.Debug("constructed", "type", "UserService", "lifetime", store.Transient, "uuid", svc.UUID)
	return svc
}

func (s *UserService) GetUserName() string {
	name := fmt.Sprintf("user_%d", s.Repo.GetUserID())
	if s.Audit != nil {
		if err := s.Audit.Notify("lookup " + name); err != nil {
			slog.Warn("audit failed", "error", err)
		}
	}
	return name
}

func (s *UserService) GetRepoUUID() string    { return s.Repo.GetRepoUUID() }
func (s *UserService) GetServiceUUID() string { return s.UUID }

// IUserLog user log interface (Scoped)
type IUserLog interface {
	LogUserID() string
	GetLogUUID() string
	Entries() []string
}

// UserLog IUserLog implementation (Scoped). Entries are dropped when the
// scope that owns the log ends.
type UserLog struct {
	Repo IUserRepo
	UUID string

	mu      sync.Mutex
	entries []string
	closed  bool
}

func NewUserLog(repo IUserRepo) *UserLog {
	log := &UserLog{Repo: repo, UUID: uuid.NewString()}
	slog.Debug("constructed", "type", "UserLog", "lifetime", store.Scoped, "uuid", log.UUID)
	return log
}

// LogUserID appends an entry for the repository's user and returns it.
func (l *UserLog) LogUserID() string {
	entry := fmt.Sprintf("user_log: user_id=%d", l.Repo.GetUserID())
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.entries = append(l.entries, entry)
	}
	return entry
}

func (l *UserLog) GetLogUUID() string { return l.UUID }

func (l *UserLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Close flushes the log at scope end.
func (l *UserLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	slog.Debug("user log closed", "uuid", l.UUID, "entries", len(l.entries))
	l.closed = true
	l.entries = nil
	return nil
}

// Closed reports whether the owning scope has ended.
func (l *UserLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
