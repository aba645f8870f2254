// rpcping issues ONC RPC calls over UDP and reports status and latency.
//
// The CLI uses github.com/spf13/cobra. Each subcommand lives in the
// corresponding *.go file.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rpcping",
	Short: "ONC RPC datagram client",
	Long: `Send ONC RPC calls to a server over UDP:

  - NULL procedure pings with retransmission and backoff
  - several concurrent handles sharing one socket
  - AUTH_NONE or AUTH_SYS credentials
  - Prometheus metrics for calls and datagrams`,
	SilenceUsage: true,
}

var rootArgs struct {
	configFile string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootArgs.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/dittorpc/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
