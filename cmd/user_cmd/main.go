// htlc-user is the command line client of the escrow server.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TEENet-io/htlc-go/client"
	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "HTLC_USER_CONFIG"

	FLAG_SERVER  = "server"
	FLAG_KEY     = "key"
	FLAG_VERBOSE = "verbose"

	KEY_SERVER_URL  = "SERVER_URL"
	KEY_PRIVATE_KEY = "PRIVATE_KEY"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "htlc-user",
		Short:        "create and settle hash time locked contracts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose, _ := cmd.Root().PersistentFlags().GetBool(FLAG_VERBOSE); verbose {
				logconfig.ConfigDebugLogger()
			} else {
				logconfig.ConfigInfoLogger()
			}
			return loadConfig(cmd)
		},
	}

	root.PersistentFlags().String(FLAG_SERVER, "http://127.0.0.1:8080", "escrow server url")
	root.PersistentFlags().String(FLAG_KEY, "", "hex private key signing requests")
	root.PersistentFlags().BoolP(FLAG_VERBOSE, "v", false, "debug logging")

	root.AddCommand(
		keygenCmd(),
		idCmd(),
		newCmd(),
		withdrawCmd(),
		refundCmd(),
		getCmd(),
		eventsCmd(),
		approveCmd(),
		balanceCmd(),
	)
	return root
}

// loadConfig reads the optional config file, then lets flags override it.
func loadConfig(cmd *cobra.Command) error {
	viper.AutomaticEnv()
	if path := viper.GetString(ENV_CONFIG_FILE_PATH); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file %s: %w", path, err)
		}
	}
	if err := viper.BindPFlag(KEY_SERVER_URL, cmd.Root().PersistentFlags().Lookup(FLAG_SERVER)); err != nil {
		return err
	}
	return viper.BindPFlag(KEY_PRIVATE_KEY, cmd.Root().PersistentFlags().Lookup(FLAG_KEY))
}

// newClient builds a client; a key is only required when signing.
func newClient(needKey bool) (*client.HtlcClient, error) {
	keyStr := strings.TrimSpace(viper.GetString(KEY_PRIVATE_KEY))
	if keyStr == "" {
		if needKey {
			return nil, fmt.Errorf("a private key is required: set --%s or %s", FLAG_KEY, KEY_PRIVATE_KEY)
		}
		return client.NewHtlcClient(viper.GetString(KEY_SERVER_URL), nil), nil
	}
	sk, err := common.StringToPrivateKey(keyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return client.NewHtlcClient(viper.GetString(KEY_SERVER_URL), sk), nil
}
