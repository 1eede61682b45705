package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a wallet key and store it sealed with the passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			addr, fp, err := wire.Wallets.Generate(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Wallet created.\nAddress: %s\nFingerprint: %s\n", addr.Hex(), fp)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <hex-private-key>",
		Short: "Import an existing private key as the wallet key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			addr, fp, err := wire.Wallets.Import(passphrase, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Wallet imported.\nAddress: %s\nFingerprint: %s\n", addr.Hex(), fp)
			return nil
		},
	}
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			addr, err := wire.Wallets.Address(passphrase)
			if err != nil {
				return err
			}
			fmt.Println(addr.Hex())
			return nil
		},
	}
}
