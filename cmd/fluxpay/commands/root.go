package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fluxpay/internal/app"
)

const configName = "fluxpay.toml"

var (
	home       string
	configPath string
	passphrase string
	nodeURL    string
	logLevel   string

	cfg  *app.Config
	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "fluxpay",
		Short:        "Payment channel client for a clearing node",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".fluxpay")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if configPath == "" {
				configPath = filepath.Join(home, configName)
			}

			c, err := app.LoadFile(configPath)
			if err != nil {
				return err
			}
			c.Home = home
			if nodeURL != "" {
				c.Node.URL = nodeURL
			}
			if logLevel != "" {
				c.Logging.Level = logLevel
			}
			if err := c.Validate(); err != nil {
				return err
			}
			if err := app.ConfigureLogging(c.Logging); err != nil {
				return err
			}

			w, err := app.NewWire(c)
			if err != nil {
				return err
			}
			cfg, wire = c, w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.fluxpay)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/fluxpay.toml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the wallet key")
	root.PersistentFlags().StringVar(&nodeURL, "node", "", "clearing node websocket URL")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(), importCmd(), addressCmd(),
		balanceCmd(), channelsCmd(), openCmd(), resizeCmd(), closeCmd(),
		payCmd(), flowCmd(),
		workspaceCmd(), employeeCmd(), taskCmd(),
	)
	return root.Execute()
}

// connect unlocks the wallet and dials the clearing node. The returned func
// closes the client and wipes the wallet key.
func connect(ctx context.Context) (*app.App, func(), error) {
	if passphrase == "" {
		return nil, nil, fmt.Errorf("passphrase required (-p)")
	}
	key, err := wire.Wallets.Load(passphrase)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Connect(ctx, cfg, wire, key)
	if err != nil {
		key.Wipe()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
		key.Wipe()
	}, nil
}
