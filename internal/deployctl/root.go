package deployctl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deployd/pkg/types"
)

func defaultServer() string {
	if v := os.Getenv("DEPLOYCTL_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// buildRootCmd constructs the Cobra command tree wired to a Client.
func buildRootCmd() *cobra.Command {
	var server string
	root := &cobra.Command{
		Use:           "deployctl",
		Short:         "Control a running deployd server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", defaultServer(), "deployd base URL (defaults DEPLOYCTL_SERVER or http://localhost:8080)")

	printJSON := func(v any) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var (
		modelID     string
		userID      string
		apiName     string
		host        string
		sshUser     string
		sshPort     string
		sshPassword string
	)
	deployCmd := &cobra.Command{
		Use:     "deploy",
		Short:   "Deploy a model runtime to a remote host",
		Example: "  deployctl deploy --model gpt2-large --user u1 --api-name gpt-large-polaris --host 24.83.13.62 --ssh-user tang --ssh-port 11000",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sshPassword == "" {
				sshPassword = os.Getenv("DEPLOYCTL_SSH_PASSWORD")
			}
			if sshPassword == "" {
				return fmt.Errorf("ssh password required (--ssh-password or DEPLOYCTL_SSH_PASSWORD)")
			}
			c := NewClient(server)
			resp, err := c.Deploy(cmd.Context(), types.DeployRequest{
				ModelID: modelID,
				UserID:  userID,
				APIName: apiName,
				SSHConfig: types.SSHConfig{
					Host:     host,
					Username: sshUser,
					Port:     sshPort,
					Password: sshPassword,
				},
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	deployCmd.Flags().StringVar(&modelID, "model", "", "Model id from the server catalog")
	deployCmd.Flags().StringVar(&userID, "user", "", "Owning user id")
	deployCmd.Flags().StringVar(&apiName, "api-name", "", "Unique name for the deployed API")
	deployCmd.Flags().StringVar(&host, "host", "", "Target host for the runtime")
	deployCmd.Flags().StringVar(&sshUser, "ssh-user", "", "SSH username on the target host")
	deployCmd.Flags().StringVar(&sshPort, "ssh-port", "", "TCP port the runtime will listen on")
	deployCmd.Flags().StringVar(&sshPassword, "ssh-password", "", "SSH password (prefer DEPLOYCTL_SSH_PASSWORD)")
	for _, f := range []string{"model", "user", "api-name", "host", "ssh-user", "ssh-port"} {
		_ = deployCmd.MarkFlagRequired(f)
	}
	root.AddCommand(deployCmd)

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClient(server)
			list, err := c.List(cmd.Context(), listUser)
			if err != nil {
				return err
			}
			return printJSON(types.DeploymentsResponse{Deployments: list})
		},
	}
	listCmd.Flags().StringVar(&listUser, "user", "", "Filter by user id")
	root.AddCommand(listCmd)

	root.AddCommand(&cobra.Command{
		Use:   "get <deployment-id>",
		Short: "Show one deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClient(server)
			rec, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "terminate <deployment-id>",
		Short: "Tear down a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClient(server)
			rec, err := c.Terminate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClient(server)
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List the server model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClient(server)
			models, err := c.Models(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(types.ModelsResponse{Models: models})
		},
	})

	return root
}

// Main runs the CLI and returns a process exit code.
func Main(args []string) int {
	root := buildRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deployctl: %v\n", err)
		return 1
	}
	return 0
}
