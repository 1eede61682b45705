package store_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/store"
)

func TestWallet_SaveLoad_OK(t *testing.T) {
	require := require.New(t)
	var ws domain.WalletStore = store.NewWalletFileStore(t.TempDir())

	require.False(ws.HasKey())
	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(ws.SaveKey("pass", key))
	require.True(ws.HasKey())

	got, err := ws.LoadKey("pass")
	require.NoError(err)
	require.Equal(key, got)
}

func TestWallet_WrongPassphrase_Fails(t *testing.T) {
	ws := store.NewWalletFileStore(t.TempDir())
	require.NoError(t, ws.SaveKey("correct", []byte{9}))
	_, err := ws.LoadKey("wrong")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestWallet_FileIsPrivate(t *testing.T) {
	home := t.TempDir()
	ws := store.NewWalletFileStore(home)
	require.NoError(t, ws.SaveKey("pass", []byte{1}))

	fi, err := os.Stat(filepath.Join(home, "wallet.json.enc"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestWorkspace_SaveListLoad(t *testing.T) {
	require := require.New(t)
	s := store.NewWorkspaceFileStore(t.TempDir())
	manager := common.HexToAddress("0xaa")
	now := time.Now().UTC()

	require.NoError(s.SaveWorkspace(domain.Workspace{ID: "b", Name: "second", ManagerAddress: manager, CreatedAt: now.Add(time.Minute)}))
	require.NoError(s.SaveWorkspace(domain.Workspace{ID: "a", Name: "first", ManagerAddress: manager, CreatedAt: now}))
	require.NoError(s.SaveWorkspace(domain.Workspace{ID: "c", Name: "other", ManagerAddress: common.HexToAddress("0xbb"), CreatedAt: now}))

	list, err := s.ListWorkspaces(manager)
	require.NoError(err)
	require.Len(list, 2)
	require.Equal("first", list[0].Name)

	id := common.HexToHash("0x01")
	ws := list[0]
	ws.ChannelID = &id
	require.NoError(s.SaveWorkspace(ws))

	got, ok, err := s.LoadWorkspace("a")
	require.NoError(err)
	require.True(ok)
	require.NotNil(got.ChannelID)
	require.Equal(id, *got.ChannelID)

	_, ok, err = s.LoadWorkspace("missing")
	require.NoError(err)
	require.False(ok)
}

func TestTask_RewardSurvivesDisk(t *testing.T) {
	require := require.New(t)
	s := store.NewTaskFileStore(t.TempDir())
	reward, _ := new(big.Int).SetString("250000000000000000000", 10)

	require.NoError(s.SaveTask(domain.Task{
		ID:           "t1",
		WorkspaceID:  "w1",
		Title:        "Ship it",
		RewardAmount: reward,
		Status:       types.TaskPending,
	}))
	got, ok, err := s.LoadTask("t1")
	require.NoError(err)
	require.True(ok)
	require.Equal(0, reward.Cmp(got.RewardAmount))

	list, err := s.ListTasks("w1")
	require.NoError(err)
	require.Len(list, 1)
	list, err = s.ListTasks("w2")
	require.NoError(err)
	require.Empty(list)
}

func TestEmployee_SaveList(t *testing.T) {
	require := require.New(t)
	s := store.NewEmployeeFileStore(t.TempDir())
	require.NoError(s.SaveEmployee(domain.Employee{Address: common.HexToAddress("0x02"), Name: "Zed"}))
	require.NoError(s.SaveEmployee(domain.Employee{Address: common.HexToAddress("0x01"), Name: "Ada"}))

	list, err := s.ListEmployees()
	require.NoError(err)
	require.Len(list, 2)
	require.Equal("Ada", list[0].Name)

	e, ok, err := s.LoadEmployee(common.HexToAddress("0x02"))
	require.NoError(err)
	require.True(ok)
	require.Equal("Zed", e.Name)
}
