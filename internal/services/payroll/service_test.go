package payroll_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/domain/types"
	"fluxpay/internal/services/payroll"
	"fluxpay/internal/store"
)

var (
	manager = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	token   = common.HexToAddress("0xDB9F293e3898c9E5536A3be1b0C56c89d2b32DEb")
	chanID  = common.HexToHash("0x01")
)

type transfer struct {
	to     common.Address
	asset  types.Asset
	amount *big.Int
}

// fakeChannels records the calls payroll makes on the channel service.
type fakeChannels struct {
	acquired    int
	transfers   []transfer
	closed      []common.Hash
	transferErr error
}

func (f *fakeChannels) List(context.Context, common.Address) ([]types.ChannelSummary, error) {
	return nil, nil
}

func (f *fakeChannels) FindOpen(context.Context, common.Address) (common.Hash, bool, error) {
	return common.Hash{}, false, nil
}

func (f *fakeChannels) Open(context.Context, common.Address) (common.Hash, error) {
	return chanID, nil
}

func (f *fakeChannels) Acquire(context.Context, common.Address) (common.Hash, bool, error) {
	f.acquired++
	return chanID, false, nil
}

func (f *fakeChannels) Resize(context.Context, common.Hash, *big.Int, common.Address) (types.ChannelState, error) {
	return types.ChannelState{}, nil
}

func (f *fakeChannels) Close(_ context.Context, id common.Hash, _ common.Address) (types.Settlement, error) {
	f.closed = append(f.closed, id)
	return types.Settlement{ChannelID: id, TxHash: common.HexToHash("0xfeed")}, nil
}

func (f *fakeChannels) Transfer(_ context.Context, to common.Address, asset types.Asset, amount *big.Int) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	f.transfers = append(f.transfers, transfer{to, asset, amount})
	return nil
}

func (f *fakeChannels) Current() (common.Hash, bool) { return chanID, true }

func (f *fakeChannels) Channel(common.Hash) (types.Channel, bool) { return types.Channel{}, false }

func newService(t *testing.T) (*payroll.Service, *fakeChannels, *clock.Mock) {
	t.Helper()
	dir := t.TempDir()
	fc := &fakeChannels{}
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := payroll.New(
		store.NewWorkspaceFileStore(dir),
		store.NewEmployeeFileStore(dir),
		store.NewTaskFileStore(dir),
		fc,
		clk,
	)
	return svc, fc, clk
}

func TestTaskLifecycle_PaidOverWorkspaceChannel(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	svc, fc, clk := newService(t)

	ws, err := svc.CreateWorkspace("Design team", manager)
	require.NoError(err)
	_, err = svc.RegisterEmployee(alice, "Alice")
	require.NoError(err)

	task, err := svc.AssignTask(ws.ID, alice, "Logo", "new logo", big.NewInt(2500000))
	require.NoError(err)
	require.Equal(types.TaskPending, task.Status)

	_, err = svc.ApproveAndPay(ctx, task.ID, "ytest.usd")
	require.ErrorIs(err, payroll.ErrInvalidTransition)

	_, err = svc.CompleteTask(task.ID, bob)
	require.ErrorIs(err, payroll.ErrNotAssignee)

	clk.Add(time.Hour)
	task, err = svc.CompleteTask(task.ID, alice)
	require.NoError(err)
	require.Equal(types.TaskCompleted, task.Status)
	require.NotNil(task.CompletedAt)

	_, err = svc.ApproveAndPay(ctx, task.ID, "ytest.usd")
	require.ErrorIs(err, payroll.ErrNoWorkspaceChannel)

	ws, err = svc.OpenWorkspaceChannel(ctx, ws.ID, token)
	require.NoError(err)
	require.NotNil(ws.ChannelID)
	require.Equal(chanID, *ws.ChannelID)

	task, err = svc.ApproveAndPay(ctx, task.ID, "ytest.usd")
	require.NoError(err)
	require.Equal(types.TaskPaid, task.Status)
	require.NotNil(task.ApprovedAt)
	require.NotNil(task.PaidAt)
	require.Len(fc.transfers, 1)
	require.Equal(alice, fc.transfers[0].to)
	require.Equal("2500000", fc.transfers[0].amount.String())

	_, err = svc.ApproveAndPay(ctx, task.ID, "ytest.usd")
	require.ErrorIs(err, payroll.ErrInvalidTransition)

	earnings, err := svc.Earnings(ws.ID)
	require.NoError(err)
	require.Len(earnings, 1)
	require.Equal(alice, earnings[0].Employee)
	require.Equal(1, earnings[0].Tasks)
	require.Equal("2500000", earnings[0].Paid.String())
}

func TestApproveAndPay_TransferFailureLeavesApproved(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	svc, fc, _ := newService(t)

	ws, err := svc.CreateWorkspace("Ops", manager)
	require.NoError(err)
	_, err = svc.RegisterEmployee(bob, "Bob")
	require.NoError(err)
	task, err := svc.AssignTask(ws.ID, bob, "Rotate keys", "", big.NewInt(10))
	require.NoError(err)
	_, err = svc.CompleteTask(task.ID, bob)
	require.NoError(err)
	_, err = svc.OpenWorkspaceChannel(ctx, ws.ID, token)
	require.NoError(err)

	fc.transferErr = errors.New("socket closed")
	task, err = svc.ApproveAndPay(ctx, task.ID, "ytest.usd")
	require.Error(err)
	require.Equal(types.TaskApproved, task.Status)

	fc.transferErr = nil
	task, err = svc.ApproveAndPay(ctx, task.ID, "ytest.usd")
	require.NoError(err)
	require.Equal(types.TaskPaid, task.Status)
}

func TestSettleWorkspace_ClearsChannel(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	svc, fc, _ := newService(t)

	ws, err := svc.CreateWorkspace("Ops", manager)
	require.NoError(err)

	_, err = svc.SettleWorkspace(ctx, ws.ID)
	require.ErrorIs(err, payroll.ErrNoWorkspaceChannel)

	_, err = svc.OpenWorkspaceChannel(ctx, ws.ID, token)
	require.NoError(err)

	settlement, err := svc.SettleWorkspace(ctx, ws.ID)
	require.NoError(err)
	require.Equal(chanID, settlement.ChannelID)
	require.Equal([]common.Hash{chanID}, fc.closed)

	list, err := svc.Workspaces(manager)
	require.NoError(err)
	require.Len(list, 1)
	require.Nil(list[0].ChannelID)
}

func TestAssignTask_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ws, err := svc.CreateWorkspace("Ops", manager)
	require.NoError(t, err)

	_, err = svc.AssignTask(ws.ID, alice, "x", "", big.NewInt(1))
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.AssignTask("missing", alice, "x", "", big.NewInt(1))
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.RegisterEmployee(alice, "Alice")
	require.NoError(t, err)
	_, err = svc.AssignTask(ws.ID, alice, "x", "", big.NewInt(0))
	require.Error(t, err)
	_, err = svc.AssignTask(ws.ID, alice, " ", "", big.NewInt(1))
	require.Error(t, err)
}

func TestFindEmployees(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.RegisterEmployee(alice, "Alice Smith")
	require.NoError(t, err)
	_, err = svc.RegisterEmployee(bob, "Bob Jones")
	require.NoError(t, err)

	found, err := svc.FindEmployees("smith")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, alice, found[0].Address)

	found, err = svc.FindEmployees("b2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, bob, found[0].Address)

	all, err := svc.FindEmployees("")
	require.NoError(t, err)
	require.Len(t, all, 2)
}
