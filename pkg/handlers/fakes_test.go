package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arnavshah/care-scheduler-api/pkg/assignment"
	"github.com/arnavshah/care-scheduler-api/pkg/database"
	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	residents []models.Resident
	staff     []models.Staff
	shifts    []models.Shift
	tasks     []models.CareTask
	pingErr   error
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) Ping(context.Context) ([]string, error) {
	if f.pingErr != nil {
		return nil, f.pingErr
	}
	return []string{"residents", "staffs", "shifts", "care_tasks"}, nil
}

func (f *fakeStore) CreateResident(_ context.Context, r *models.Resident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.nextID("res")
	f.residents = append(f.residents, *r)
	return nil
}

func (f *fakeStore) ListResidents(context.Context) ([]models.Resident, error) {
	return append([]models.Resident{}, f.residents...), nil
}

func (f *fakeStore) CreateStaff(_ context.Context, s *models.Staff) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.nextID("staff")
	f.staff = append(f.staff, *s)
	return nil
}

func (f *fakeStore) ListStaff(context.Context) ([]models.Staff, error) {
	return append([]models.Staff{}, f.staff...), nil
}

func (f *fakeStore) CreateShift(_ context.Context, sh *models.Shift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh.ID = f.nextID("shift")
	f.shifts = append(f.shifts, *sh)
	return nil
}

func (f *fakeStore) ListShifts(_ context.Context, filter models.ShiftFilter) ([]models.Shift, error) {
	out := []models.Shift{}
	for _, sh := range f.shifts {
		if filter.Date != "" && sh.Date != filter.Date {
			continue
		}
		if filter.Status != "" && sh.Status != filter.Status {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

func (f *fakeStore) CreateTask(_ context.Context, t *models.CareTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID("task")
	f.tasks = append(f.tasks, *t)
	return nil
}

func (f *fakeStore) ListTasks(_ context.Context, filter models.TaskFilter) ([]models.CareTask, error) {
	out := []models.CareTask{}
	for _, t := range f.tasks {
		if filter.ResidentID != "" && t.ResidentID != filter.ResidentID {
			continue
		}
		if filter.StaffID != "" && t.AssignedToStaffID != filter.StaffID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) UpdateTaskStatus(_ context.Context, id string, status models.TaskStatus) (*models.CareTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			t := f.tasks[i]
			return &t, nil
		}
	}
	return nil, database.ErrNotFound
}

type fakeKeys struct {
	mu    sync.Mutex
	users map[string]database.MasterUser
	keys  []database.APIKey
	usage map[uint]*database.APIUsage
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{users: map[string]database.MasterUser{}, usage: map[uint]*database.APIUsage{}}
}

func (f *fakeKeys) FindUser(_ context.Context, username string) (*database.MasterUser, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (f *fakeKeys) FindOrCreateAPIKey(_ context.Context, key, name string) (*database.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.keys {
		if f.keys[i].Key == key {
			k := f.keys[i]
			return &k, nil
		}
	}
	k := database.APIKey{ID: uint(len(f.keys) + 1), Key: key, Name: name, RateLimit: database.DefaultRateLimit}
	f.keys = append(f.keys, k)
	return &k, nil
}

func (f *fakeKeys) CreateAPIKey(_ context.Context, key *database.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key.ID = uint(len(f.keys) + 1)
	if key.RateLimit == 0 {
		key.RateLimit = database.DefaultRateLimit
	}
	key.KeyPreview = database.Preview(key.Key)
	f.keys = append(f.keys, *key)
	return nil
}

func (f *fakeKeys) ListAPIKeys(context.Context) ([]database.APIKey, error) {
	return append([]database.APIKey{}, f.keys...), nil
}

func (f *fakeKeys) DeleteAPIKey(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.keys {
		if f.keys[i].ID == id {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeKeys) UpdateKeyLimit(_ context.Context, id uint, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.keys {
		if f.keys[i].ID == id {
			f.keys[i].RateLimit = limit
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeKeys) RecordUsage(_ context.Context, keyID uint, shiftCount, staffCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usage[keyID]
	if !ok {
		u = &database.APIUsage{KeyID: keyID, Date: time.Now().Format(models.DateLayout)}
		f.usage[keyID] = u
	}
	u.RequestCount++
	u.TotalShifts += shiftCount
	u.TotalStaff += staffCount
	return nil
}

func (f *fakeKeys) UsageForKey(_ context.Context, keyID uint) ([]database.APIUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.usage[keyID]; ok {
		return []database.APIUsage{*u}, nil
	}
	return []database.APIUsage{}, nil
}

type fakeAssigner struct {
	got    []assignment.Request
	result *assignment.Result
	err    error
}

func (f *fakeAssigner) AutoAssign(_ context.Context, req assignment.Request) (*assignment.Result, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
