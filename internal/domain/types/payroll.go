package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Workspace groups a manager's employees and tasks around one payment channel.
// ChannelID is nil while no channel is open for the workspace.
type Workspace struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ManagerAddress common.Address `json:"manager_address"`
	ChannelID      *common.Hash   `json:"channel_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Employee is a registered payee.
type Employee struct {
	Address   common.Address `json:"wallet_address"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
}

// TaskStatus moves pending -> completed -> paid. Approved is recorded for
// tasks that were signed off before the payment went out.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskApproved  TaskStatus = "approved"
	TaskPaid      TaskStatus = "paid"
)

// Task is a unit of work with a reward in base units.
type Task struct {
	ID              string         `json:"id"`
	WorkspaceID     string         `json:"workspace_id"`
	EmployeeAddress common.Address `json:"employee_address"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	RewardAmount    *big.Int       `json:"reward_amount"`
	Status          TaskStatus     `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
}

// Earning aggregates paid work per employee within a workspace.
type Earning struct {
	Employee common.Address `json:"employee"`
	Paid     *big.Int       `json:"paid"`
	Tasks    int            `json:"tasks"`
}
