// Command rpcclient-demo connects to a running rpcserver-demo and invokes
// procedures from its math_ops and greeter modules.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/auth"
	"github.com/bashkirtsevich/rabbitrpc/auth/statictoken"
	"github.com/bashkirtsevich/rabbitrpc/logging"
	"github.com/bashkirtsevich/rabbitrpc/rpcclient"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "rpcclient-demo",
		Short: "Reference RPC client for math_ops and greeter",
	}

	root.AddCommand(newDefinitionsCmd(), newCallCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient(ctx context.Context, authToken string) (*rpcclient.Client, error) {
	var plugin auth.ClientPlugin
	if authToken != "" {
		plugin = statictoken.NewClient(authToken)
	}

	return rpcclient.Dial(ctx, rpcclient.ClientConfigFromEnv(), plugin)
}

func newDefinitionsCmd() *cobra.Command {
	var authToken string

	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "Fetch and print the server's current definition table",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Configure(logging.Config{ServiceName: "rpcclient-demo"})
			defer logging.Shutdown(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := newClient(ctx, authToken)
			if err != nil {
				return err
			}
			defer client.Stop()

			if err := client.Refresh(ctx); err != nil {
				return err
			}

			fmt.Printf("definitions hash: %d\n", client.CurrentHash())
			for _, module := range client.ModuleNames() {
				fmt.Printf("module %s\n", module)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&authToken, "auth-token", "", "shared-secret token to present to the server")
	return cmd
}

func newCallCmd() *cobra.Command {
	var authToken, module, call, kwargsJSON string

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Invoke module.call with JSON-encoded keyword arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Configure(logging.Config{ServiceName: "rpcclient-demo"})
			defer logging.Shutdown(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := newClient(ctx, authToken)
			if err != nil {
				return err
			}
			defer client.Stop()

			var kwargs map[string]interface{}
			if kwargsJSON != "" {
				if err := json.Unmarshal([]byte(kwargsJSON), &kwargs); err != nil {
					return fmt.Errorf("invalid --kwargs JSON: %w", err)
				}
			}

			result, err := client.Call(ctx, module, call, nil, kwargs)
			if err != nil {
				return err
			}

			out, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&authToken, "auth-token", "", "shared-secret token to present to the server")
	cmd.Flags().StringVar(&module, "module", "", "module name, e.g. greeter")
	cmd.Flags().StringVar(&call, "call", "", "call name, e.g. hello")
	cmd.Flags().StringVar(&kwargsJSON, "kwargs", "", `keyword arguments as a JSON object, e.g. '{"name":"alice"}'`)
	_ = cmd.MarkFlagRequired("module")
	_ = cmd.MarkFlagRequired("call")

	return cmd
}
