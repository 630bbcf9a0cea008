package cmd

import (
	"fmt"
	"os"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/token"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// fileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

// GenesisEntry is the text form of a genesis allocation in a config file.
type GenesisEntry struct {
	Token   string `mapstructure:"token"`
	Account string `mapstructure:"account"`
	Amount  string `mapstructure:"amount"`
}

// ParseGenesis turns config entries into ledger allocations.
func ParseGenesis(entries []GenesisEntry) ([]token.GenesisAlloc, error) {
	allocs := make([]token.GenesisAlloc, 0, len(entries))
	for i, e := range entries {
		if !ethcommon.IsHexAddress(e.Token) {
			return nil, fmt.Errorf("genesis[%d]: invalid token %q", i, e.Token)
		}
		if !ethcommon.IsHexAddress(e.Account) {
			return nil, fmt.Errorf("genesis[%d]: invalid account %q", i, e.Account)
		}
		amount, err := common.ParseAmount(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d]: %w", i, err)
		}
		allocs = append(allocs, token.GenesisAlloc{
			Token:   ethcommon.HexToAddress(e.Token),
			Account: ethcommon.HexToAddress(e.Account),
			Amount:  amount,
		})
	}
	return allocs, nil
}
