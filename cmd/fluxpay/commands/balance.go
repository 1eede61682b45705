package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"fluxpay/internal/domain"
)

func balanceCmd() *cobra.Command {
	var of, asset, token string
	var custody bool
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a ledger balance on the clearing node",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if asset == "" {
				asset = cfg.Chain.Asset
			}
			who := a.Address()
			if of != "" {
				if who, err = parseAddress(of); err != nil {
					return err
				}
			}
			if custody {
				tok := cfg.Chain.Token
				if token != "" {
					if tok, err = parseAddress(token); err != nil {
						return err
					}
				}
				bal, err := a.CustodyBalance(cmd.Context(), who, tok)
				if err != nil {
					return err
				}
				fmt.Printf("%s (custody, token %s)\n", bal, tok.Hex())
				return nil
			}
			bal, err := a.RecipientBalance(cmd.Context(), who, domain.Asset(asset))
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", bal, asset)
			return nil
		},
	}
	cmd.Flags().StringVar(&of, "of", "", "address to query (default: own wallet)")
	cmd.Flags().StringVar(&asset, "asset", "", "ledger asset (default from config)")
	cmd.Flags().BoolVar(&custody, "custody", false, "show the on-chain custody balance instead")
	cmd.Flags().StringVar(&token, "token", "", "custody token address (default from config)")
	return cmd
}
