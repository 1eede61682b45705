package store

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"fluxpay/internal/domain"
)

const employeesFilename = "employees.json"

// EmployeeFileStore persists employees keyed by wallet address.
type EmployeeFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewEmployeeFileStore returns an EmployeeFileStore rooted at dir.
func NewEmployeeFileStore(dir string) *EmployeeFileStore {
	return &EmployeeFileStore{dir: dir}
}

// SaveEmployee stores or updates e.
func (s *EmployeeFileStore) SaveEmployee(e domain.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, employeesFilename)
	all := map[common.Address]domain.Employee{}
	if err := readJSON(path, &all); err != nil {
		return err
	}
	all[e.Address] = e
	return writeJSON(path, all, 0o600)
}

// LoadEmployee retrieves the employee at addr.
func (s *EmployeeFileStore) LoadEmployee(addr common.Address) (domain.Employee, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[common.Address]domain.Employee{}
	if err := readJSON(filepath.Join(s.dir, employeesFilename), &all); err != nil {
		return domain.Employee{}, false, err
	}
	e, ok := all[addr]
	return e, ok, nil
}

// ListEmployees returns every employee ordered by name.
func (s *EmployeeFileStore) ListEmployees() ([]domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[common.Address]domain.Employee{}
	if err := readJSON(filepath.Join(s.dir, employeesFilename), &all); err != nil {
		return nil, err
	}
	out := make([]domain.Employee, 0, len(all))
	for _, e := range all {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Compile-time assertion that EmployeeFileStore implements domain.EmployeeStore.
var _ domain.EmployeeStore = (*EmployeeFileStore)(nil)
