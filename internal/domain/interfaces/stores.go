package interfaces

import (
	"github.com/ethereum/go-ethereum/common"

	domaintypes "fluxpay/internal/domain/types"
)

// WalletStore keeps the primary wallet key encrypted at rest.
type WalletStore interface {
	SaveKey(passphrase string, key []byte) error
	LoadKey(passphrase string) ([]byte, error)
	HasKey() bool
}

// WorkspaceStore persists payroll workspaces.
type WorkspaceStore interface {
	SaveWorkspace(ws domaintypes.Workspace) error
	LoadWorkspace(id string) (domaintypes.Workspace, bool, error)
	ListWorkspaces(manager common.Address) ([]domaintypes.Workspace, error)
}

// EmployeeStore persists registered employees.
type EmployeeStore interface {
	SaveEmployee(e domaintypes.Employee) error
	LoadEmployee(addr common.Address) (domaintypes.Employee, bool, error)
	ListEmployees() ([]domaintypes.Employee, error)
}

// TaskStore persists workspace tasks.
type TaskStore interface {
	SaveTask(t domaintypes.Task) error
	LoadTask(id string) (domaintypes.Task, bool, error)
	ListTasks(workspaceID string) ([]domaintypes.Task, error)
}
