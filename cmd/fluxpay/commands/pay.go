package commands

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"fluxpay/internal/domain"
	"fluxpay/internal/services/flow"
)

func payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <recipient> <amount>",
		Short: "Transfer ledger funds to a recipient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amt, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := a.Pay(cmd.Context(), to, amt); err != nil {
				return err
			}
			fmt.Printf("Sent %s %s to %s\n", args[1], cfg.Chain.Asset, to.Hex())
			return nil
		},
	}
}

func flowCmd() *cobra.Command {
	var deposit, fund, token string
	cmd := &cobra.Command{
		Use:   "flow <recipient> <amount>",
		Short: "Deposit, open or reuse a channel, fund it, pay and settle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			pay, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			p := domain.PaymentFlow{Recipient: to, PayAmount: pay, FundAmount: pay}
			if fund != "" {
				if p.FundAmount, err = parseAmount(fund); err != nil {
					return err
				}
			}
			if deposit != "" {
				if p.DepositAmount, err = parseAmount(deposit); err != nil {
					return err
				}
			}
			if token != "" {
				var tok common.Address
				if tok, err = parseAddress(token); err != nil {
					return err
				}
				p.Token = tok
			}

			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			report, err := a.ExecutePaymentFlow(cmd.Context(), p)
			var stepErr *flow.StepError
			if errors.As(err, &stepErr) {
				return fmt.Errorf("flow stopped at %s: %w", stepErr.Step, stepErr.Err)
			}
			if err != nil {
				return err
			}
			if report.Deposited {
				fmt.Printf("Deposit tx: %s\n", report.DepositTx.Hex())
				fmt.Printf("Custody: %s -> %s\n", report.CustodyBefore, report.CustodyAfter)
			}
			state := "opened"
			if report.Reused {
				state = "reused"
			}
			fmt.Printf("Channel %s (%s), funded to version %d\n", report.ChannelID.Hex(), state, report.FundedState.Version)
			fmt.Printf("Paid %s %s to %s\n", args[1], cfg.Chain.Asset, to.Hex())
			fmt.Printf("Settled in tx %s\n", report.Settlement.TxHash.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&deposit, "deposit", "", "custody deposit (default: none)")
	cmd.Flags().StringVar(&fund, "fund", "", "channel allocation (default: the payment amount)")
	cmd.Flags().StringVar(&token, "token", "", "token address (default from config)")
	return cmd
}
