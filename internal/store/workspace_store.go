package store

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"fluxpay/internal/domain"
)

const workspacesFilename = "workspaces.json"

// WorkspaceFileStore persists workspaces keyed by id.
type WorkspaceFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewWorkspaceFileStore returns a WorkspaceFileStore rooted at dir.
func NewWorkspaceFileStore(dir string) *WorkspaceFileStore {
	return &WorkspaceFileStore{dir: dir}
}

// SaveWorkspace stores or replaces ws.
func (s *WorkspaceFileStore) SaveWorkspace(ws domain.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, workspacesFilename)
	all := map[string]domain.Workspace{}
	if err := readJSON(path, &all); err != nil {
		return err
	}
	all[ws.ID] = ws
	return writeJSON(path, all, 0o600)
}

// LoadWorkspace retrieves workspace id.
func (s *WorkspaceFileStore) LoadWorkspace(id string) (domain.Workspace, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[string]domain.Workspace{}
	if err := readJSON(filepath.Join(s.dir, workspacesFilename), &all); err != nil {
		return domain.Workspace{}, false, err
	}
	ws, ok := all[id]
	return ws, ok, nil
}

// ListWorkspaces returns manager's workspaces, oldest first.
func (s *WorkspaceFileStore) ListWorkspaces(manager common.Address) ([]domain.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[string]domain.Workspace{}
	if err := readJSON(filepath.Join(s.dir, workspacesFilename), &all); err != nil {
		return nil, err
	}
	var out []domain.Workspace
	for _, ws := range all {
		if ws.ManagerAddress == manager {
			out = append(out, ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Compile-time assertion that WorkspaceFileStore implements domain.WorkspaceStore.
var _ domain.WorkspaceStore = (*WorkspaceFileStore)(nil)
