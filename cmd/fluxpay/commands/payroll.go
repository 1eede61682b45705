package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"fluxpay/internal/domain"
)

// self reads the wallet address for commands that do not connect.
func self() (common.Address, error) {
	if passphrase == "" {
		return common.Address{}, fmt.Errorf("passphrase required (-p)")
	}
	return wire.Wallets.Address(passphrase)
}

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage payroll workspaces",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace managed by the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := self()
			if err != nil {
				return err
			}
			ws, err := wire.Payroll.CreateWorkspace(args[0], manager)
			if err != nil {
				return err
			}
			fmt.Println(ws.ID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the wallet's workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := self()
			if err != nil {
				return err
			}
			all, err := wire.Payroll.Workspaces(manager)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCHANNEL")
			for _, ws := range all {
				ch := "-"
				if ws.ChannelID != nil {
					ch = ws.ChannelID.Hex()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ws.ID, ws.Name, ch)
			}
			return tw.Flush()
		},
	}

	var token string
	openChannel := &cobra.Command{
		Use:   "open-channel <workspace-id>",
		Short: "Open or reuse the payment channel for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok := cfg.Chain.Token
			if token != "" {
				var err error
				if tok, err = parseAddress(token); err != nil {
					return err
				}
			}
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := a.Authenticate(cmd.Context()); err != nil {
				return err
			}
			ws, err := a.Payroll.OpenWorkspaceChannel(cmd.Context(), args[0], tok)
			if err != nil {
				return err
			}
			fmt.Printf("Workspace %s uses channel %s\n", ws.ID, ws.ChannelID.Hex())
			return nil
		},
	}
	openChannel.Flags().StringVar(&token, "token", "", "token address (default from config)")

	settle := &cobra.Command{
		Use:   "settle <workspace-id>",
		Short: "Close the workspace channel and settle it to the manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if _, _, err := a.FindOpenChannel(cmd.Context()); err != nil {
				return err
			}
			s, err := a.Payroll.SettleWorkspace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Channel %s settled.\nTx: %s\n", s.ChannelID.Hex(), s.TxHash.Hex())
			return nil
		},
	}

	earnings := &cobra.Command{
		Use:   "earnings <workspace-id>",
		Short: "Show what each employee has been paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := wire.Payroll.Earnings(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMPLOYEE\tPAID\tTASKS")
			for _, e := range all {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Employee.Hex(), human(e.Paid), e.Tasks)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(create, list, openChannel, settle, earnings)
	return cmd
}

func employeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Register and find employees",
	}
	register := &cobra.Command{
		Use:   "register <address> <name>",
		Short: "Register or rename an employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			e, err := wire.Payroll.RegisterEmployee(addr, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s (%s)\n", e.Name, e.Address.Hex())
			return nil
		},
	}
	find := &cobra.Command{
		Use:   "find <term>",
		Short: "Find employees by name or address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := wire.Payroll.FindEmployees(args[0])
			if err != nil {
				return err
			}
			for _, e := range found {
				fmt.Printf("%s\t%s\n", e.Address.Hex(), e.Name)
			}
			return nil
		},
	}
	cmd.AddCommand(register, find)
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Assign, complete, approve and list tasks",
	}

	var description string
	assign := &cobra.Command{
		Use:   "assign <workspace-id> <employee> <title> <reward>",
		Short: "Assign a task with a reward to an employee",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			employee, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			reward, err := parseAmount(args[3])
			if err != nil {
				return err
			}
			t, err := wire.Payroll.AssignTask(args[0], employee, args[2], description, reward)
			if err != nil {
				return err
			}
			fmt.Println(t.ID)
			return nil
		},
	}
	assign.Flags().StringVar(&description, "description", "", "task description")

	complete := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark your task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := self()
			if err != nil {
				return err
			}
			t, err := wire.Payroll.CompleteTask(args[0], me)
			if err != nil {
				return err
			}
			fmt.Printf("Task %s %s\n", t.ID, t.Status)
			return nil
		},
	}

	approve := &cobra.Command{
		Use:   "approve <task-id>",
		Short: "Approve a completed task and pay its reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := a.Authenticate(cmd.Context()); err != nil {
				return err
			}
			t, err := a.Payroll.ApproveAndPay(cmd.Context(), args[0], domain.Asset(cfg.Chain.Asset))
			if err != nil {
				return err
			}
			fmt.Printf("Task %s %s: %s %s to %s\n", t.ID, t.Status, human(t.RewardAmount), cfg.Chain.Asset, t.EmployeeAddress.Hex())
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list <workspace-id>",
		Short: "List a workspace's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := wire.Payroll.Tasks(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMPLOYEE\tTITLE\tREWARD\tSTATUS")
			for _, t := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.EmployeeAddress.Hex(), t.Title, human(t.RewardAmount), t.Status)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(assign, complete, approve, list)
	return cmd
}
