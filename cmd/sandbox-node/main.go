package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fluxpay/internal/metrics"
	"fluxpay/internal/sandbox"
)

var log = logrus.WithField("component", "sandbox-node")

func main() {
	var (
		listen      string
		metricsAddr string
		chainID     uint64
		credits     []string
		seeds       []string
	)
	root := &cobra.Command{
		Use:          "sandbox-node",
		Short:        "In-memory clearing node for local development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := sandbox.NewNode(sandbox.WithChainID(chainID))
			if err != nil {
				return err
			}
			defer node.Close()

			for _, c := range credits {
				addr, amount, err := splitPair(c)
				if err != nil {
					return errors.Wrap(err, "--credit")
				}
				if err := node.Credit(addr, sandbox.DefaultAsset, amount); err != nil {
					return err
				}
			}
			for _, s := range seeds {
				addr, amount, err := splitPair(s)
				if err != nil {
					return errors.Wrap(err, "--seed-channel")
				}
				v, ok := new(big.Int).SetString(amount, 10)
				if !ok {
					return errors.Errorf("--seed-channel: amount %q is not an integer", amount)
				}
				id, err := node.SeedChannel(addr, common.Address{}, v)
				if err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"owner": addr.Hex(), "channel": id.Hex()}).Info("seeded channel")
			}

			if metricsAddr != "" {
				go func() {
					if err := metrics.Serve(metricsAddr); err != nil {
						log.WithError(err).Warn("metrics endpoint stopped")
					}
				}()
			}

			mux := http.NewServeMux()
			mux.Handle("/ws", node)
			srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdown)
			}()

			log.WithFields(logrus.Fields{
				"listen": listen,
				"node":   node.Address().Hex(),
			}).Info("sandbox node listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	root.Flags().StringVar(&listen, "listen", ":8080", "listen address")
	root.Flags().StringVar(&metricsAddr, "metrics", "", "Prometheus listen address (empty disables)")
	root.Flags().Uint64Var(&chainID, "chain-id", sandbox.DefaultChainID, "chain id channels are bound to")
	root.Flags().StringArrayVar(&credits, "credit", nil, "address=amount ledger credit, repeatable")
	root.Flags().StringArrayVar(&seeds, "seed-channel", nil, "owner=amount open channel, repeatable")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func splitPair(s string) (common.Address, string, error) {
	addr, amount, ok := strings.Cut(s, "=")
	if !ok || !common.IsHexAddress(addr) || amount == "" {
		return common.Address{}, "", errors.Errorf("expected address=amount, got %q", s)
	}
	return common.HexToAddress(addr), amount, nil
}
