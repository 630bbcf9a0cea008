package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const requestTimeout = time.Minute

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func addressFlag(cmd *cobra.Command, name string) (ethcommon.Address, error) {
	str, _ := cmd.Flags().GetString(name)
	if !ethcommon.IsHexAddress(str) {
		return ethcommon.Address{}, fmt.Errorf("--%s: invalid address %q", name, str)
	}
	return ethcommon.HexToAddress(str), nil
}

func amountFlag(cmd *cobra.Command) (*big.Int, error) {
	str, _ := cmd.Flags().GetString("amount")
	amount, err := common.ParseAmount(str)
	if err != nil {
		return nil, fmt.Errorf("--amount: %w", err)
	}
	return amount, nil
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "generate a private key and print its address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sk := common.GenPrivateKeys(1)[0]
			return printJSON(cmd, map[string]string{
				"privateKey": common.PrivateKeyToString(sk),
				"address":    crypto.PubkeyToAddress(sk.PublicKey).Hex(),
			})
		},
	}
}

func idCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "compute a contract id locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := addressFlag(cmd, "sender")
			if err != nil {
				return err
			}
			receiver, err := addressFlag(cmd, "receiver")
			if err != nil {
				return err
			}
			tokenContract, err := addressFlag(cmd, "token")
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			hashlockStr, _ := cmd.Flags().GetString("hashlock")
			hashlock, err := common.ParseBytes32(hashlockStr)
			if err != nil {
				return fmt.Errorf("--hashlock: %w", err)
			}
			timelock, _ := cmd.Flags().GetUint64("timelock")

			id := htlc.ComputeContractId(sender, receiver, tokenContract, amount, hashlock, timelock)
			return printJSON(cmd, map[string]string{"id": id.Hex()})
		},
	}
	cmd.Flags().String("sender", "", "sender address")
	cmd.Flags().String("receiver", "", "receiver address")
	cmd.Flags().String("token", "", "token contract address")
	cmd.Flags().String("amount", "", "amount, decimal or 0x hex")
	cmd.Flags().String("hashlock", "", "sha256 of the preimage, 32-byte hex")
	cmd.Flags().Uint64("timelock", 0, "expiry, unix seconds")
	return cmd
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "lock tokens for a receiver under a hashlock and timelock",
		Long: "Without --hashlock a random preimage is drawn and printed; keep it to withdraw. " +
			"Without --timelock the expiry is --duration after the escrow clock.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			receiver, err := addressFlag(cmd, "receiver")
			if err != nil {
				return err
			}
			tokenContract, err := addressFlag(cmd, "token")
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}

			out := map[string]string{}
			var hashlock [32]byte
			if hashlockStr, _ := cmd.Flags().GetString("hashlock"); hashlockStr != "" {
				if hashlock, err = common.ParseBytes32(hashlockStr); err != nil {
					return fmt.Errorf("--hashlock: %w", err)
				}
			} else {
				var preimage [32]byte
				preimage, hashlock = htlc.RandPreimage()
				out["preimage"] = ethcommon.Hash(preimage).Hex()
			}
			out["hashlock"] = ethcommon.Hash(hashlock).Hex()

			ctx, cancel := withTimeout()
			defer cancel()

			timelock, _ := cmd.Flags().GetUint64("timelock")
			if timelock == 0 {
				duration, _ := cmd.Flags().GetDuration("duration")
				now, err := c.Time(ctx)
				if err != nil {
					return err
				}
				timelock = now.Now + uint64(duration/time.Second)
			}
			out["timelock"] = fmt.Sprint(timelock)

			id, err := c.NewContract(ctx, receiver, hashlock, timelock, tokenContract, amount)
			if err != nil && !errors.Is(err, htlc.ErrTransferPending) {
				return err
			}
			out["id"] = id.Hex()
			if err != nil {
				// the contract is stored, keep its secret
				out["status"] = "pending"
				if perr := printJSON(cmd, out); perr != nil {
					return perr
				}
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().String("receiver", "", "receiver address")
	cmd.Flags().String("token", "", "token contract address")
	cmd.Flags().String("amount", "", "amount, decimal or 0x hex")
	cmd.Flags().String("hashlock", "", "sha256 of the preimage, 32-byte hex")
	cmd.Flags().Uint64("timelock", 0, "expiry, unix seconds")
	cmd.Flags().Duration("duration", time.Hour, "expiry relative to the escrow clock when --timelock is unset")
	return cmd
}

func withdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw <id>",
		Short: "claim a contract as its receiver by revealing the preimage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			id, err := htlc.ParseContractId(args[0])
			if err != nil {
				return err
			}
			preimageStr, _ := cmd.Flags().GetString("preimage")
			preimage, err := common.ParseBytes32(preimageStr)
			if err != nil {
				return fmt.Errorf("--preimage: %w", err)
			}

			ctx, cancel := withTimeout()
			defer cancel()
			if err := c.Withdraw(ctx, id, preimage); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"id": id.Hex(), "result": "withdrawn"})
		},
	}
	cmd.Flags().String("preimage", "", "secret whose sha256 is the hashlock, 32-byte hex")
	return cmd
}

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <id>",
		Short: "reclaim an expired contract as its sender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			id, err := htlc.ParseContractId(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout()
			defer cancel()
			if err := c.Refund(ctx, id); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"id": id.Hex(), "result": "refunded"})
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "print a contract; unknown ids print the zero-valued record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(false)
			if err != nil {
				return err
			}
			id, err := htlc.ParseContractId(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout()
			defer cancel()
			ct, err := c.GetContract(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, ct)
		},
	}
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "print the escrow event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(false)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetUint64("from")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx, cancel := withTimeout()
			defer cancel()
			events, err := c.Events(ctx, from, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, events)
		},
	}
	cmd.Flags().Uint64("from", 0, "first sequence number")
	cmd.Flags().Int("limit", 0, "maximum number of events, server default when 0")
	return cmd
}

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "allow the escrow account to pull ledger tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			tokenContract, err := addressFlag(cmd, "token")
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			var spender ethcommon.Address
			if str, _ := cmd.Flags().GetString("spender"); str != "" {
				if spender, err = addressFlag(cmd, "spender"); err != nil {
					return err
				}
			}

			ctx, cancel := withTimeout()
			defer cancel()
			if err := c.Approve(ctx, tokenContract, spender, amount); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"token": tokenContract.Hex(), "amount": amount.String()})
		},
	}
	cmd.Flags().String("token", "", "token contract address")
	cmd.Flags().String("amount", "", "allowance, decimal or 0x hex")
	cmd.Flags().String("spender", "", "spender address, the escrow account when unset")
	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "print a token balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenContract, err := addressFlag(cmd, "token")
			if err != nil {
				return err
			}

			accountStr, _ := cmd.Flags().GetString("account")
			c, err := newClient(accountStr == "")
			if err != nil {
				return err
			}
			var account ethcommon.Address
			if accountStr != "" {
				account, err = addressFlag(cmd, "account")
			} else {
				account, err = c.Address()
			}
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout()
			defer cancel()
			balance, err := c.Balance(ctx, tokenContract, account)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"token":   tokenContract.Hex(),
				"account": account.Hex(),
				"balance": balance.String(),
			})
		},
	}
	cmd.Flags().String("token", "", "token contract address")
	cmd.Flags().String("account", "", "account address, the signer when unset")
	return cmd
}
