package testutil

import (
	"context"
	"sort"
	"sync"

	"gifty/backend/internal/models"
	"gifty/backend/internal/repositories"
)

// MemoryBirthdayRepository はテスト用のメモリ上の BirthdayRepository です。
// 名と姓の組み合わせの一意制約と FindAll の並び順はデータベースと同じです。
type MemoryBirthdayRepository struct {
	mu      sync.Mutex
	nextID  int
	records map[int]models.Birthday

	// FailWith が設定されていると、すべての操作がこのエラーを返します。
	FailWith error
	// PingErr は Ping が返すエラーです。
	PingErr error
}

// NewMemoryBirthdayRepository は空のMemoryBirthdayRepositoryを作成します。
func NewMemoryBirthdayRepository() *MemoryBirthdayRepository {
	return &MemoryBirthdayRepository{nextID: 1, records: map[int]models.Birthday{}}
}

var _ repositories.BirthdayRepository = (*MemoryBirthdayRepository)(nil)

// Ping は PingErr を返します。
func (r *MemoryBirthdayRepository) Ping(ctx context.Context) error {
	return r.PingErr
}

func (r *MemoryBirthdayRepository) Migrate(ctx context.Context) error {
	return r.FailWith
}

func (r *MemoryBirthdayRepository) FindAll(ctx context.Context) ([]*models.Birthday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}

	all := make([]*models.Birthday, 0, len(r.records))
	for _, b := range r.records {
		b := b
		all = append(all, &b)
	}
	// NULL を先頭にして date_of_birth の文字列順、同じなら id 順
	sort.Slice(all, func(i, j int) bool {
		di, dj := dobKey(all[i]), dobKey(all[j])
		if di != dj {
			return di < dj
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func dobKey(b *models.Birthday) string {
	if b.DateOfBirth == nil {
		return ""
	}
	return b.DateOfBirth.String()
}

func (r *MemoryBirthdayRepository) FindByID(ctx context.Context, id int) (*models.Birthday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	b, ok := r.records[id]
	if !ok {
		return nil, repositories.ErrBirthdayNotFound
	}
	return &b, nil
}

func (r *MemoryBirthdayRepository) FindByName(ctx context.Context, name, lastName string) (*models.Birthday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	for _, b := range r.records {
		if b.Name == name && b.LastName == lastName {
			return &b, nil
		}
	}
	return nil, repositories.ErrBirthdayNotFound
}

func (r *MemoryBirthdayRepository) Create(ctx context.Context, b *models.Birthday) (*models.Birthday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	if r.nameTaken(b.Name, b.LastName, 0) {
		return nil, repositories.ErrDuplicateBirthday
	}
	b.ID = r.nextID
	r.nextID++
	r.records[b.ID] = *b
	return b, nil
}

func (r *MemoryBirthdayRepository) Update(ctx context.Context, id int, b *models.Birthday) (*models.Birthday, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	if _, ok := r.records[id]; !ok {
		return nil, repositories.ErrBirthdayNotFound
	}
	if r.nameTaken(b.Name, b.LastName, id) {
		return nil, repositories.ErrDuplicateBirthday
	}
	updated := *b
	updated.ID = id
	r.records[id] = updated
	return &updated, nil
}

func (r *MemoryBirthdayRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.records[id]; !ok {
		return repositories.ErrBirthdayNotFound
	}
	delete(r.records, id)
	return nil
}

// Len は保存されている件数を返します。
func (r *MemoryBirthdayRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *MemoryBirthdayRepository) nameTaken(name, lastName string, exceptID int) bool {
	for id, b := range r.records {
		if id != exceptID && b.Name == name && b.LastName == lastName {
			return true
		}
	}
	return false
}
