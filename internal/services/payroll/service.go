package payroll

import (
	"bytes"
	"context"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
)

var log = logrus.WithField("component", "payroll")

var (
	// ErrInvalidTransition is returned when a task is not in a state that
	// allows the requested change.
	ErrInvalidTransition = errors.New("task status does not allow this change")

	// ErrNotAssignee is returned when someone other than the assignee
	// completes a task.
	ErrNotAssignee = errors.New("task is assigned to another employee")

	// ErrNoWorkspaceChannel is returned when paying or settling a workspace
	// with no open channel.
	ErrNoWorkspaceChannel = errors.New("workspace has no open channel")
)

// Service implements domain.PayrollService over the given stores.
type Service struct {
	workspaces domain.WorkspaceStore
	employees  domain.EmployeeStore
	tasks      domain.TaskStore
	channels   domain.ChannelService
	clk        clock.Clock
}

// New returns a payroll service. channels may be nil for bookkeeping-only
// use, in which case channel operations fail with ErrNoChannel.
func New(
	workspaces domain.WorkspaceStore,
	employees domain.EmployeeStore,
	tasks domain.TaskStore,
	channels domain.ChannelService,
	clk clock.Clock,
) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		workspaces: workspaces,
		employees:  employees,
		tasks:      tasks,
		channels:   channels,
		clk:        clk,
	}
}

// CreateWorkspace creates a workspace managed by manager.
func (s *Service) CreateWorkspace(name string, manager common.Address) (types.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Workspace{}, errors.New("workspace name is required")
	}
	ws := types.Workspace{
		ID:             uuid.NewString(),
		Name:           name,
		ManagerAddress: manager,
		CreatedAt:      s.clk.Now().UTC(),
	}
	if err := s.workspaces.SaveWorkspace(ws); err != nil {
		return types.Workspace{}, errors.Wrap(err, "save workspace")
	}
	log.WithFields(logrus.Fields{"workspace": ws.ID, "name": name}).Info("workspace created")
	return ws, nil
}

// Workspaces lists manager's workspaces.
func (s *Service) Workspaces(manager common.Address) ([]types.Workspace, error) {
	return s.workspaces.ListWorkspaces(manager)
}

// RegisterEmployee records addr under name. Registering an existing
// address updates the name and keeps the original creation time.
func (s *Service) RegisterEmployee(addr common.Address, name string) (types.Employee, error) {
	if addr == (common.Address{}) {
		return types.Employee{}, errors.New("employee address is required")
	}
	e, ok, err := s.employees.LoadEmployee(addr)
	if err != nil {
		return types.Employee{}, err
	}
	if !ok {
		e = types.Employee{Address: addr, CreatedAt: s.clk.Now().UTC()}
	}
	e.Name = strings.TrimSpace(name)
	if err := s.employees.SaveEmployee(e); err != nil {
		return types.Employee{}, errors.Wrap(err, "save employee")
	}
	return e, nil
}

// FindEmployees returns employees whose name or address contains term,
// ignoring case. An empty term returns everyone.
func (s *Service) FindEmployees(term string) ([]types.Employee, error) {
	all, err := s.employees.ListEmployees()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return all, nil
	}
	var out []types.Employee
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Name), term) ||
			strings.Contains(strings.ToLower(e.Address.Hex()), term) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AssignTask creates a pending task in workspaceID for employee.
func (s *Service) AssignTask(
	workspaceID string,
	employee common.Address,
	title, description string,
	reward *big.Int,
) (types.Task, error) {
	if _, err := s.workspace(workspaceID); err != nil {
		return types.Task{}, err
	}
	if _, ok, err := s.employees.LoadEmployee(employee); err != nil {
		return types.Task{}, err
	} else if !ok {
		return types.Task{}, errors.Wrapf(types.ErrNotFound, "employee %s", employee.Hex())
	}
	if strings.TrimSpace(title) == "" {
		return types.Task{}, errors.New("task title is required")
	}
	if reward == nil || reward.Sign() <= 0 {
		return types.Task{}, errors.New("task reward must be positive")
	}
	t := types.Task{
		ID:              uuid.NewString(),
		WorkspaceID:     workspaceID,
		EmployeeAddress: employee,
		Title:           strings.TrimSpace(title),
		Description:     description,
		RewardAmount:    new(big.Int).Set(reward),
		Status:          types.TaskPending,
		CreatedAt:       s.clk.Now().UTC(),
	}
	if err := s.tasks.SaveTask(t); err != nil {
		return types.Task{}, errors.Wrap(err, "save task")
	}
	return t, nil
}

// CompleteTask marks a pending task completed by its assignee.
func (s *Service) CompleteTask(taskID string, employee common.Address) (types.Task, error) {
	t, err := s.task(taskID)
	if err != nil {
		return types.Task{}, err
	}
	if t.EmployeeAddress != employee {
		return types.Task{}, ErrNotAssignee
	}
	if t.Status != types.TaskPending {
		return types.Task{}, errors.Wrapf(ErrInvalidTransition, "complete %s task", t.Status)
	}
	now := s.clk.Now().UTC()
	t.Status = types.TaskCompleted
	t.CompletedAt = &now
	if err := s.tasks.SaveTask(t); err != nil {
		return types.Task{}, errors.Wrap(err, "save task")
	}
	return t, nil
}

// Tasks lists workspaceID's tasks, newest first.
func (s *Service) Tasks(workspaceID string) ([]types.Task, error) {
	return s.tasks.ListTasks(workspaceID)
}

// OpenWorkspaceChannel reuses or opens a channel for token and records it
// on the workspace.
func (s *Service) OpenWorkspaceChannel(ctx context.Context, workspaceID string, token common.Address) (types.Workspace, error) {
	if s.channels == nil {
		return types.Workspace{}, types.ErrNoChannel
	}
	ws, err := s.workspace(workspaceID)
	if err != nil {
		return types.Workspace{}, err
	}
	id, reused, err := s.channels.Acquire(ctx, token)
	if err != nil {
		return types.Workspace{}, errors.Wrap(err, "acquire channel")
	}
	ws.ChannelID = &id
	if err := s.workspaces.SaveWorkspace(ws); err != nil {
		return types.Workspace{}, errors.Wrap(err, "save workspace")
	}
	log.WithFields(logrus.Fields{
		"workspace": ws.ID,
		"channel":   id.Hex(),
		"reused":    reused,
	}).Info("workspace channel ready")
	return ws, nil
}

// ApproveAndPay approves a completed task and transfers its reward to the
// assignee. If the transfer cannot be sent the task stays approved so the
// payment can be retried.
func (s *Service) ApproveAndPay(ctx context.Context, taskID string, asset types.Asset) (types.Task, error) {
	if s.channels == nil {
		return types.Task{}, types.ErrNoChannel
	}
	t, err := s.task(taskID)
	if err != nil {
		return types.Task{}, err
	}
	if t.Status != types.TaskCompleted && t.Status != types.TaskApproved {
		return types.Task{}, errors.Wrapf(ErrInvalidTransition, "pay %s task", t.Status)
	}
	ws, err := s.workspace(t.WorkspaceID)
	if err != nil {
		return types.Task{}, err
	}
	if ws.ChannelID == nil {
		return types.Task{}, ErrNoWorkspaceChannel
	}

	if t.ApprovedAt == nil {
		now := s.clk.Now().UTC()
		t.ApprovedAt = &now
	}
	t.Status = types.TaskApproved
	if err := s.tasks.SaveTask(t); err != nil {
		return types.Task{}, errors.Wrap(err, "save task")
	}

	if err := s.channels.Transfer(ctx, t.EmployeeAddress, asset, t.RewardAmount); err != nil {
		return t, errors.Wrap(err, "pay task")
	}

	now := s.clk.Now().UTC()
	t.Status = types.TaskPaid
	t.PaidAt = &now
	if err := s.tasks.SaveTask(t); err != nil {
		return types.Task{}, errors.Wrap(err, "save task")
	}
	log.WithFields(logrus.Fields{
		"task":     t.ID,
		"employee": t.EmployeeAddress.Hex(),
		"amount":   t.RewardAmount.String(),
	}).Info("task paid")
	return t, nil
}

// SettleWorkspace closes the workspace channel, paying the remainder back
// to the manager, and clears the channel from the workspace once the
// settlement is confirmed on-chain.
func (s *Service) SettleWorkspace(ctx context.Context, workspaceID string) (types.Settlement, error) {
	if s.channels == nil {
		return types.Settlement{}, types.ErrNoChannel
	}
	ws, err := s.workspace(workspaceID)
	if err != nil {
		return types.Settlement{}, err
	}
	if ws.ChannelID == nil {
		return types.Settlement{}, ErrNoWorkspaceChannel
	}
	settlement, err := s.channels.Close(ctx, *ws.ChannelID, ws.ManagerAddress)
	if err != nil {
		return types.Settlement{}, errors.Wrap(err, "settle workspace channel")
	}
	ws.ChannelID = nil
	if err := s.workspaces.SaveWorkspace(ws); err != nil {
		return settlement, errors.Wrap(err, "save workspace")
	}
	return settlement, nil
}

// Earnings totals paid rewards per employee in workspaceID.
func (s *Service) Earnings(workspaceID string) ([]types.Earning, error) {
	tasks, err := s.tasks.ListTasks(workspaceID)
	if err != nil {
		return nil, err
	}
	byEmployee := map[common.Address]*types.Earning{}
	for _, t := range tasks {
		if t.Status != types.TaskPaid || t.RewardAmount == nil {
			continue
		}
		e, ok := byEmployee[t.EmployeeAddress]
		if !ok {
			e = &types.Earning{Employee: t.EmployeeAddress, Paid: new(big.Int)}
			byEmployee[t.EmployeeAddress] = e
		}
		e.Paid.Add(e.Paid, t.RewardAmount)
		e.Tasks++
	}
	out := make([]types.Earning, 0, len(byEmployee))
	for _, e := range byEmployee {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Employee[:], out[j].Employee[:]) < 0
	})
	return out, nil
}

func (s *Service) workspace(id string) (types.Workspace, error) {
	ws, ok, err := s.workspaces.LoadWorkspace(id)
	if err != nil {
		return types.Workspace{}, err
	}
	if !ok {
		return types.Workspace{}, errors.Wrapf(types.ErrNotFound, "workspace %s", id)
	}
	return ws, nil
}

func (s *Service) task(id string) (types.Task, error) {
	t, ok, err := s.tasks.LoadTask(id)
	if err != nil {
		return types.Task{}, err
	}
	if !ok {
		return types.Task{}, errors.Wrapf(types.ErrNotFound, "task %s", id)
	}
	return t, nil
}

// Compile-time assertion that Service implements domain.PayrollService.
var _ domain.PayrollService = (*Service)(nil)
