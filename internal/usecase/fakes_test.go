package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"consultation-service/internal/domain/entity"
	"consultation-service/internal/domain/repository"
	"consultation-service/internal/service"
	"consultation-service/pkg/jwt"
	"consultation-service/pkg/password"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testHasher() password.Hasher {
	return password.NewBcryptHasher(bcrypt.MinCost)
}

// fakeUserRepo keeps users in memory. Lookups return copies so tests see
// only what was explicitly saved.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
	order []uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]entity.User{}}
}

func (r *fakeUserRepo) add(name, email string, role entity.Role) *entity.User {
	u := entity.User{ID: uuid.New(), Name: name, Email: email, Role: role, IsActive: true}
	r.mu.Lock()
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	r.mu.Unlock()
	return &u
}

func (r *fakeUserRepo) get(id uuid.UUID) entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) find(match func(entity.User) bool) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		u := r.users[id]
		if match(u) {
			return &u
		}
	}
	return nil
}

func (r *fakeUserRepo) list(match func(entity.User) bool) []entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.User
	for _, id := range r.order {
		if u := r.users[id]; match(u) {
			out = append(out, u)
		}
	}
	return out
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id }), nil
}

func (r *fakeUserRepo) FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id && u.IsActive }), nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email }), nil
}

func (r *fakeUserRepo) FindActiveByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email && u.IsActive }), nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.find(func(u entity.User) bool { return u.Email == email }) != nil, nil
}

func (r *fakeUserRepo) FindAllActive(ctx context.Context) ([]entity.User, error) {
	return r.list(func(u entity.User) bool { return u.IsActive }), nil
}

func (r *fakeUserRepo) FindActivePage(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	all := r.list(func(u entity.User) bool { return u.IsActive })
	total := int64(len(all))
	if offset >= len(all) {
		return []entity.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeUserRepo) FindActiveByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	return r.list(func(u entity.User) bool { return u.IsActive && u.Role == role }), nil
}

func (r *fakeUserRepo) CountActive(ctx context.Context) (int64, error) {
	return int64(len(r.list(func(u entity.User) bool { return u.IsActive }))), nil
}

func (r *fakeUserRepo) CountActiveByRole(ctx context.Context, role entity.Role) (int64, error) {
	return int64(len(r.list(func(u entity.User) bool { return u.IsActive && u.Role == role }))), nil
}

// fakeConsultationRepo checks for overlaps and writes in two separate
// critical sections, with an optional pause between them, so callers that
// skip the medic lock can race.
type fakeConsultationRepo struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]entity.Consultation
	gap           func()
}

func newFakeConsultationRepo() *fakeConsultationRepo {
	return &fakeConsultationRepo{consultations: map[uuid.UUID]entity.Consultation{}}
}

func (r *fakeConsultationRepo) put(c entity.Consultation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Medic = nil
	c.Patient = nil
	r.consultations[c.ID] = c
}

func (r *fakeConsultationRepo) get(id uuid.UUID) entity.Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consultations[id]
}

func (r *fakeConsultationRepo) overlaps(c *entity.Consultation, exclude uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.consultations {
		if existing.ID == exclude || existing.MedicID != c.MedicID {
			continue
		}
		if existing.OccupiesSlot() && existing.Overlaps(c.StartTime, c.EndTime) {
			return true
		}
	}
	return false
}

func (r *fakeConsultationRepo) CreateWithNoOverlap(ctx context.Context, c *entity.Consultation) error {
	if r.overlaps(c, uuid.Nil) {
		return repository.ErrOverlap
	}
	if r.gap != nil {
		r.gap()
	}
	r.put(*c)
	return nil
}

func (r *fakeConsultationRepo) UpdateWithNoOverlap(ctx context.Context, c *entity.Consultation) error {
	if stored := r.get(c.ID); !stored.IsScheduled() {
		return repository.ErrNotScheduled
	}
	if r.overlaps(c, c.ID) {
		return repository.ErrOverlap
	}
	r.put(*c)
	return nil
}

func (r *fakeConsultationRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.ConsultationStatus, to entity.ConsultationStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return 0, nil
	}
	for _, status := range from {
		if c.Status == status {
			c.Status = to
			r.consultations[id] = c
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeConsultationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeConsultationRepo) sorted(match func(entity.Consultation) bool) []entity.Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Consultation{}
	for _, c := range r.consultations {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *fakeConsultationRepo) FindAll(ctx context.Context) ([]entity.Consultation, error) {
	return r.sorted(func(entity.Consultation) bool { return true }), nil
}

func (r *fakeConsultationRepo) FindByStartBetween(ctx context.Context, from, to time.Time) ([]entity.Consultation, error) {
	return r.sorted(func(c entity.Consultation) bool {
		return !c.StartTime.Before(from) && !c.StartTime.After(to)
	}), nil
}

type fakeTokenStore struct {
	mu   sync.Mutex
	keys map[string]uuid.UUID
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{keys: map[string]uuid.UUID{}}
}

func (s *fakeTokenStore) Store(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[service.TokenKey(userID, tokenID, tokenType)] = userID
	return nil
}

func (s *fakeTokenStore) Exists(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[service.TokenKey(userID, tokenID, tokenType)]
	return ok, nil
}

func (s *fakeTokenStore) Revoke(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, service.TokenKey(userID, tokenID, tokenType))
	return nil
}

func (s *fakeTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, owner := range s.keys {
		if owner == userID {
			delete(s.keys, key)
		}
	}
	return nil
}

func (s *fakeTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

type auditEntry struct {
	actor    *uuid.UUID
	action   string
	entityID string
}

type fakeAuditService struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (s *fakeAuditService) LogCreate(ctx context.Context, actorID *uuid.UUID, action, entityName, entityID string, newValue interface{}) error {
	return s.LogUpdate(ctx, actorID, action, entityName, entityID, nil, newValue)
}

func (s *fakeAuditService) LogUpdate(ctx context.Context, actorID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, auditEntry{actor: actorID, action: action, entityID: entityID})
	return nil
}

func (s *fakeAuditService) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.action
	}
	return out
}

type notification struct {
	event  string
	id     uuid.UUID
	status entity.ConsultationStatus
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *fakeNotifier) Notify(ctx context.Context, event string, c *entity.Consultation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{event: event, id: c.ID, status: c.Status})
}

func (n *fakeNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.event
	}
	return out
}

func newTestMedicLocker(t *testing.T) *service.MedicLocker {
	locker := service.NewMedicLocker(quietLogger())
	t.Cleanup(locker.Stop)
	return locker
}
