package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"fluxpay/internal/app"
	"fluxpay/internal/domain"
)

func channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the wallet's channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			list, err := a.ListChannels(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("no channels")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHANNEL\tSTATUS\tTOKEN\tAMOUNT\tVERSION")
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.ChannelID.Hex(), c.Status, c.Token.Hex(), human(c.Amount), c.Version)
			}
			return tw.Flush()
		},
	}
}

func openCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a payment channel, reusing an open one when present",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok common.Address
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

			id, err := a.OpenChannel(cmd.Context(), tok)
			if err != nil {
				return err
			}
			fmt.Println(id.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token address (default from config)")
	return cmd
}

func resizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resize <channel-id> <amount>",
		Short: "Allocate ledger funds into a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHash(args[0])
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

			if err := adopt(cmd.Context(), a, id); err != nil {
				return err
			}
			st, err := a.ResizeChannel(cmd.Context(), id, amt)
			if err != nil {
				return err
			}
			fmt.Printf("Channel %s resized, version %d\n", id.Hex(), st.Version)
			return nil
		},
	}
}

func closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <channel-id>",
		Short: "Close a channel and settle it on chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHash(args[0])
			if err != nil {
				return err
			}
			a, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := adopt(cmd.Context(), a, id); err != nil {
				return err
			}
			s, err := a.CloseChannel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Channel %s closed.\nTx: %s\n", s.ChannelID.Hex(), s.TxHash.Hex())
			return nil
		},
	}
}

// adopt loads channel id from the node so resize and close can act on it.
func adopt(ctx context.Context, a *app.App, id common.Hash) error {
	open, ok, err := a.FindOpenChannel(ctx)
	if err != nil {
		return err
	}
	if !ok || open != id {
		return fmt.Errorf("channel %s: %w", id.Hex(), domain.ErrNoChannel)
	}
	return nil
}
