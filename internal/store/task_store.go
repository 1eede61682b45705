package store

import (
	"path/filepath"
	"sort"
	"sync"

	"fluxpay/internal/domain"
)

const tasksFilename = "tasks.json"

// TaskFileStore persists tasks keyed by id.
type TaskFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewTaskFileStore returns a TaskFileStore rooted at dir.
func NewTaskFileStore(dir string) *TaskFileStore {
	return &TaskFileStore{dir: dir}
}

// SaveTask stores or replaces t.
func (s *TaskFileStore) SaveTask(t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, tasksFilename)
	all := map[string]domain.Task{}
	if err := readJSON(path, &all); err != nil {
		return err
	}
	all[t.ID] = t
	return writeJSON(path, all, 0o600)
}

// LoadTask retrieves task id.
func (s *TaskFileStore) LoadTask(id string) (domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[string]domain.Task{}
	if err := readJSON(filepath.Join(s.dir, tasksFilename), &all); err != nil {
		return domain.Task{}, false, err
	}
	t, ok := all[id]
	return t, ok, nil
}

// ListTasks returns workspaceID's tasks, newest first.
func (s *TaskFileStore) ListTasks(workspaceID string) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[string]domain.Task{}
	if err := readJSON(filepath.Join(s.dir, tasksFilename), &all); err != nil {
		return nil, err
	}
	var out []domain.Task
	for _, t := range all {
		if t.WorkspaceID == workspaceID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Compile-time assertion that TaskFileStore implements domain.TaskStore.
var _ domain.TaskStore = (*TaskFileStore)(nil)
