package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-reservation/internal/data/entity"
	"restaurant-reservation/internal/data/repository"
	"restaurant-reservation/pkg/events"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the postgres repositories. It
// enforces the same active-row uniqueness as the partial unique indexes.
type memStore struct {
	mu           sync.Mutex
	members      map[uuid.UUID]*entity.Member
	restaurants  map[uuid.UUID]*entity.Restaurant
	reservations []*entity.Reservation

	failCreateWith error
	// afterFind runs once, right after the next FindByNumber read.
	afterFind func(number string)
}

func newMemStore() *memStore {
	return &memStore{
		members:     make(map[uuid.UUID]*entity.Member),
		restaurants: make(map[uuid.UUID]*entity.Restaurant),
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Member:      memberRepo{s},
		Restaurant:  restaurantRepo{s},
		Reservation: reservationRepo{s},
		Cache:       newMemCache(),
		Tx:          memTx{s},
	}
}

func (s *memStore) addMember(userID string, role entity.MemberRole) *entity.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &entity.Member{Base: entity.Base{ID: uuid.New()}, UserID: userID, Role: role}
	s.members[m.ID] = m
	return m
}

func (s *memStore) addRestaurant(name string, manager uuid.UUID, open, close string) *entity.Restaurant {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &entity.Restaurant{Base: entity.Base{ID: uuid.New()}, Name: name, ManagerID: manager}
	if open != "" {
		r.OpenHour, r.CloseHour = &open, &close
	}
	s.restaurants[r.ID] = r
	return r
}

func (s *memStore) onNextFind(fn func(number string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterFind = fn
}

func (s *memStore) member(id uuid.UUID) entity.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.members[id]
}

func (s *memStore) reservation(number string) *entity.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(number)
}

func (s *memStore) latestLocked(number string) *entity.Reservation {
	var latest *entity.Reservation
	for _, r := range s.reservations {
		if r.Number == number && (latest == nil || !r.CreatedAt.Before(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil
	}
	c := *latest
	return &c
}

func (s *memStore) decorate(r *entity.Reservation) *entity.Reservation {
	c := *r
	if m, ok := s.members[r.MemberID]; ok {
		c.MemberUserID = m.UserID
	}
	if rs, ok := s.restaurants[r.RestaurantID]; ok {
		c.RestaurantName = rs.Name
	}
	return &c
}

type memberRepo struct{ s *memStore }

func (r memberRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r memberRepo) GrantReviewPermission(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.members[id]; ok {
		m.CanWriteReview = true
	}
	return nil
}

type restaurantRepo struct{ s *memStore }

func (r restaurantRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rs, ok := r.s.restaurants[id]
	if !ok {
		return nil, nil
	}
	c := *rs
	return &c, nil
}

func (r restaurantRepo) FindByName(_ context.Context, name string) (*entity.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rs := range r.s.restaurants {
		if rs.Name == name {
			c := *rs
			return &c, nil
		}
	}
	return nil, nil
}

type reservationRepo struct{ s *memStore }

func (r reservationRepo) Create(_ context.Context, reservation *entity.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failCreateWith; err != nil {
		r.s.failCreateWith = nil
		return err
	}
	for _, existing := range r.s.reservations {
		if !existing.Status.IsActive() {
			continue
		}
		if existing.Number == reservation.Number {
			return repository.ErrDuplicateNumber
		}
		if existing.MemberID == reservation.MemberID && existing.RestaurantID == reservation.RestaurantID {
			return repository.ErrDuplicateActive
		}
	}
	r.s.reservations = append(r.s.reservations, r.s.decorate(reservation))
	return nil
}

func (r reservationRepo) FindByNumber(_ context.Context, number string) (*entity.Reservation, error) {
	r.s.mu.Lock()
	found := r.s.latestLocked(number)
	hook := r.s.afterFind
	r.s.afterFind = nil
	r.s.mu.Unlock()

	if hook != nil {
		hook(number)
	}
	return found, nil
}

func (r reservationRepo) filter(keep func(*entity.Reservation) bool, ascending bool) []*entity.Reservation {
	var out []*entity.Reservation
	for _, rv := range r.s.reservations {
		if keep(rv) {
			c := *rv
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func page(rows []*entity.Reservation, limit, offset int) []*entity.Reservation {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func (r reservationRepo) FindByMemberID(_ context.Context, memberID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.filter(func(rv *entity.Reservation) bool { return rv.MemberID == memberID }, false)
	return page(rows, limit, offset), nil
}

func (r reservationRepo) CountByMemberID(_ context.Context, memberID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filter(func(rv *entity.Reservation) bool { return rv.MemberID == memberID }, false))), nil
}

func (r reservationRepo) FindActiveByRestaurantID(_ context.Context, restaurantID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.filter(func(rv *entity.Reservation) bool {
		return rv.RestaurantID == restaurantID && rv.Status.IsActive()
	}, true)
	return page(rows, limit, offset), nil
}

func (r reservationRepo) CountActiveByRestaurantID(_ context.Context, restaurantID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.filter(func(rv *entity.Reservation) bool {
		return rv.RestaurantID == restaurantID && rv.Status.IsActive()
	}, true)
	return int64(len(rows)), nil
}

func (r reservationRepo) FindActive(_ context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.filter(func(rv *entity.Reservation) bool {
		if !rv.Status.IsActive() {
			return false
		}
		if rv.CreatedAt.Equal(afterCreatedAt) {
			return rv.ID.String() > afterID.String()
		}
		return rv.CreatedAt.After(afterCreatedAt)
	}, true)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID.String() < rows[j].ID.String()
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return page(rows, limit, 0), nil
}

func (r reservationRepo) LatestNumber(_ context.Context) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.filter(func(*entity.Reservation) bool { return true }, false)
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Number, nil
}

func (r reservationRepo) ExistsActive(_ context.Context, memberID, restaurantID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reservations {
		if rv.MemberID == memberID && rv.RestaurantID == restaurantID && rv.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r reservationRepo) ExistsActiveNumber(_ context.Context, number string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reservations {
		if rv.Number == number && rv.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r reservationRepo) ExistsDeniedForHour(_ context.Context, memberID, restaurantID uuid.UUID, hour string, since time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reservations {
		if rv.MemberID == memberID && rv.RestaurantID == restaurantID && rv.RequestedHour == hour &&
			rv.Status == entity.ReservationStatusDenied && !rv.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r reservationRepo) UpdateTransition(_ context.Context, reservation *entity.Reservation, from entity.ReservationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rv := range r.s.reservations {
		if rv.ID != reservation.ID {
			continue
		}
		if rv.Status != from {
			return repository.ErrStaleReservation
		}
		r.s.reservations[i] = r.s.decorate(reservation)
		return nil
	}
	return repository.ErrStaleReservation
}

type memTx struct{ s *memStore }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *repository.Repository) error) error {
	return fn(ctx, &repository.Repository{
		Member:      memberRepo{t.s},
		Restaurant:  restaurantRepo{t.s},
		Reservation: reservationRepo{t.s},
	})
}

type memCache struct {
	mu    sync.Mutex
	items map[string]entity.Reservation
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string]entity.Reservation)}
}

func (c *memCache) Get(_ context.Context, number string) (*entity.Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[number]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (c *memCache) Set(_ context.Context, reservation *entity.Reservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[reservation.Number] = *reservation
	return nil
}

func (c *memCache) Delete(_ context.Context, number string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, number)
	return nil
}

// recordingPublisher remembers published subjects in order.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := data.(events.ReservationEvent); ok {
		p.subjects = append(p.subjects, subject)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}
