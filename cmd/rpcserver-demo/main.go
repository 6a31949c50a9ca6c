// Command rpcserver-demo boots an RPC dispatcher exposing the mathops and
// greeter demo modules, for exercising the framework end to end against a
// real broker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/bashkirtsevich/rabbitrpc/auth/statictoken"
	"github.com/bashkirtsevich/rabbitrpc/logging"
	"github.com/bashkirtsevich/rabbitrpc/rpcserver"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "rpcserver-demo",
		Short: "Reference RPC server exposing math_ops and greeter modules",
	}

	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var authToken string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to the broker and start serving RPC requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Configure(logging.Config{ServiceName: "rpcserver-demo", JSONFormat: true})
			defer logging.Shutdown(context.Background())

			registerMathOps()
			registerGreeter()

			cfg := rpcserver.ServerConfigFromEnv()
			if authToken != "" {
				cfg.AuthPluginName = "statictoken"
				cfg.AuthPluginConfig = map[string]interface{}{"token": authToken}
			}

			dispatcher, err := rpcserver.Boot(cfg, rpcserver.DefaultRegistry)
			if err != nil {
				return fmt.Errorf("failed to boot dispatcher: %w", err)
			}
			defer dispatcher.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			fmt.Printf("rpcserver-demo listening on queue %q\n", cfg.QueueName)
			return dispatcher.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&authToken, "auth-token", "", "if set, requires this shared-secret token on every call")

	return cmd
}
