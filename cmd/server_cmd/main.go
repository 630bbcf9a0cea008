package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/TEENet-io/htlc-go/cmd"
	"github.com/TEENet-io/htlc-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "HTLC_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()
	setDefaults()

	// Accessing an environment variable of configuration file location.
	// Without one the server runs on environment variables alone.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	if _config_file != "" {
		fmt.Printf("Htlc server configuration file = %s\n", _config_file)

		// See if file exists
		if !cmd.FileExists(_config_file) {
			fmt.Printf("Htlc server configuration file not found: %s\n", _config_file)
			return
		}

		// Read from config file.
		if !initializeViper(_config_file) {
			return
		}
	}

	logconfig.Configure(viper.GetString("LOG_LEVEL"), viper.GetString("LOG_FORMAT"))

	// Make the configuration
	hsc := PrepareHtlcServerConfig()
	if hsc == nil {
		fmt.Printf("Error loading htlc server configuration\n")
		return
	}

	fmt.Println("Starting htlc server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartHtlcServerAndWait(hsc)
}

func setDefaults() {
	viper.SetDefault("HTTP_IP", "0.0.0.0")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("CUSTODIAN", cmd.CUSTODIAN_LEDGER)
	viper.SetDefault("CLOCK_SOURCE", cmd.CLOCK_SYSTEM)
	viper.SetDefault("ETH_TX_TIMEOUT", "2m")
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareHtlcServerConfig reads configuration variables and returns a HtlcServerConfig.
func PrepareHtlcServerConfig() *cmd.HtlcServerConfig {

	// *** prepare objects that aren't string type ***

	var entries []cmd.GenesisEntry
	if err := viper.UnmarshalKey("GENESIS", &entries); err != nil {
		fmt.Printf("Error reading GENESIS: %s\n", err)
		return nil
	}
	genesis, err := cmd.ParseGenesis(entries)
	if err != nil {
		fmt.Printf("Error parsing GENESIS: %s\n", err)
		return nil
	}

	// *** end of preparing objects ***

	return &cmd.HtlcServerConfig{
		// state side
		DbFilePath:       viper.GetString("DB_FILE_PATH"),
		LedgerDbFilePath: viper.GetString("LEDGER_DB_FILE_PATH"),
		// custody side
		Custodian:            viper.GetString("CUSTODIAN"),
		EscrowAccount:        viper.GetString("ESCROW_ACCOUNT"),
		EthRpcUrl:            viper.GetString("ETH_RPC_URL"),
		EthEscrowAccountPriv: viper.GetString("ETH_ESCROW_ACCOUNT_PRIV"),
		EthTxTimeout:         viper.GetDuration("ETH_TX_TIMEOUT"),
		Genesis:              genesis,
		ClockSource:          viper.GetString("CLOCK_SOURCE"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
