// Command ledgerctl is a thin operator shell over the ledger Engine API
// (§6). It loads configuration via pkg/config, opens an Engine, and calls
// its methods directly — no business logic lives here, matching the
// teacher's cmd/synnergy/main.go cobra root + subcommand style.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgerengine/core"
	"ledgerengine/pkg/config"
)

func identityFlag(cmd *cobra.Command, name string) (core.Identity, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return core.AnonymousIdentity, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return core.Identity{}, fmt.Errorf("--%s: %w", name, err)
	}
	return core.NewIdentity(raw), nil
}

func openEngine() (*core.Engine, *config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	e, err := core.Load(cfg.Storage.Path, cfg.Consensus.Blockchain)
	if err != nil {
		return nil, nil, fmt.Errorf("load engine: %w", err)
	}
	return e, cfg, nil
}

func main() {
	root := &cobra.Command{Use: "ledgerctl"}
	root.AddCommand(genesisCmd(), balanceCmd(), sendCmd(), accountCmd(), multisigCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func genesisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "initialise a fresh ledger from the configured genesis symbols and balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			symbols := make(map[core.Symbol]string, len(cfg.Genesis.Symbols))
			for id, name := range cfg.Genesis.Symbols {
				symbols[core.Symbol(id)] = name
			}
			var balances []core.InitialBalance
			for _, ib := range cfg.Genesis.InitialBalances {
				raw, err := hex.DecodeString(ib.Identity)
				if err != nil {
					return fmt.Errorf("decode genesis identity %q: %w", ib.Identity, err)
				}
				balances = append(balances, core.InitialBalance{
					Identity: core.NewIdentity(raw),
					Symbol:   core.Symbol(ib.Symbol),
					Amount:   core.NewTokenAmount(ib.Amount),
				})
			}
			genesisRaw, err := hex.DecodeString(cfg.Genesis.Identity)
			if err != nil {
				return fmt.Errorf("decode genesis owner identity: %w", err)
			}
			e, err := core.New(symbols, balances, cfg.Storage.Path, core.NewIdentity(genesisRaw), cfg.Consensus.Blockchain)
			if err != nil {
				return err
			}
			defer e.Close()
			fmt.Printf("genesis committed, root hash %x\n", e.Hash())
			return nil
		},
	}
	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "print an identity's balance in a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			id, err := identityFlag(cmd, "identity")
			if err != nil {
				return err
			}
			sym, _ := cmd.Flags().GetString("symbol")
			bal, err := e.GetBalance(id, core.Symbol(sym))
			if err != nil {
				return err
			}
			fmt.Println(bal.Uint64())
			return nil
		},
	}
	cmd.Flags().String("identity", "", "hex-encoded identity")
	cmd.Flags().String("symbol", "", "symbol id")
	return cmd
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "transfer tokens between two identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			from, err := identityFlag(cmd, "from")
			if err != nil {
				return err
			}
			to, err := identityFlag(cmd, "to")
			if err != nil {
				return err
			}
			sym, _ := cmd.Flags().GetString("symbol")
			amt, _ := cmd.Flags().GetUint64("amount")
			return e.Send(from, to, core.Symbol(sym), core.NewTokenAmount(amt))
		},
	}
	cmd.Flags().String("from", "", "hex-encoded sender identity")
	cmd.Flags().String("to", "", "hex-encoded recipient identity")
	cmd.Flags().String("symbol", "", "symbol id")
	cmd.Flags().Uint64("amount", 0, "amount to transfer")
	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "account"}
	create := &cobra.Command{
		Use:   "create",
		Short: "create an account with an owner role",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			parent, err := identityFlag(cmd, "parent")
			if err != nil {
				return err
			}
			owner, err := identityFlag(cmd, "owner")
			if err != nil {
				return err
			}
			acc := core.Account{Roles: map[string][]string{owner.Text(): {string(core.RoleOwner)}}}
			id, err := e.AddAccount(parent, acc)
			if err != nil {
				return err
			}
			fmt.Printf("account %x\n", id.Bytes())
			return nil
		},
	}
	create.Flags().String("parent", "", "hex-encoded parent identity to derive the new account from")
	create.Flags().String("owner", "", "hex-encoded owner identity")
	cmd.AddCommand(create)
	return cmd
}

func multisigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "multisig"}

	tokenFlag := func(c *cobra.Command) []byte {
		s, _ := c.Flags().GetString("token")
		b, _ := hex.DecodeString(s)
		return b
	}

	submit := &cobra.Command{
		Use:   "submit",
		Short: "submit a pending multi-party send",
		RunE: func(c *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			sender, err := identityFlag(c, "sender")
			if err != nil {
				return err
			}
			from, err := identityFlag(c, "from")
			if err != nil {
				return err
			}
			to, err := identityFlag(c, "to")
			if err != nil {
				return err
			}
			sym, _ := c.Flags().GetString("symbol")
			amt, _ := c.Flags().GetUint64("amount")
			token, err := e.CreateMultisigTransaction(sender, core.MultisigTxArg{
				Transaction: core.TransactionRecord{
					Kind:   core.KindSend,
					From:   from.Bytes(),
					To:     to.Bytes(),
					Symbol: sym,
					Amount: amountBytes(amt),
				},
			})
			if err != nil {
				return err
			}
			fmt.Printf("token %x\n", token)
			return nil
		},
	}
	submit.Flags().String("sender", "", "hex-encoded submitter identity")
	submit.Flags().String("from", "", "hex-encoded source account identity")
	submit.Flags().String("to", "", "hex-encoded recipient identity")
	submit.Flags().String("symbol", "", "symbol id")
	submit.Flags().Uint64("amount", 0, "amount to transfer")

	approve := &cobra.Command{
		Use:   "approve",
		Short: "approve a pending multisig transaction",
		RunE: func(c *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			approver, err := identityFlag(c, "approver")
			if err != nil {
				return err
			}
			executed, err := e.ApproveMultisig(tokenFlag(c), approver)
			if err != nil {
				return err
			}
			fmt.Printf("executed=%v\n", executed)
			return nil
		},
	}
	approve.Flags().String("token", "", "hex-encoded multisig token")
	approve.Flags().String("approver", "", "hex-encoded approver identity")

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "revoke a previously recorded approval",
		RunE: func(c *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			approver, err := identityFlag(c, "approver")
			if err != nil {
				return err
			}
			return e.RevokeMultisig(tokenFlag(c), approver)
		},
	}
	revoke.Flags().String("token", "", "hex-encoded multisig token")
	revoke.Flags().String("approver", "", "hex-encoded approver identity")

	execute := &cobra.Command{
		Use:   "execute",
		Short: "execute a pending multisig transaction once its threshold is met",
		RunE: func(c *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			sender, err := identityFlag(c, "sender")
			if err != nil {
				return err
			}
			return e.ExecuteMultisig(tokenFlag(c), sender)
		},
	}
	execute.Flags().String("token", "", "hex-encoded multisig token")
	execute.Flags().String("sender", "", "hex-encoded caller identity")

	withdraw := &cobra.Command{
		Use:   "withdraw",
		Short: "withdraw a pending multisig transaction",
		RunE: func(c *cobra.Command, args []string) error {
			e, _, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			sender, err := identityFlag(c, "sender")
			if err != nil {
				return err
			}
			return e.WithdrawMultisig(tokenFlag(c), sender)
		},
	}
	withdraw.Flags().String("token", "", "hex-encoded multisig token")
	withdraw.Flags().String("sender", "", "hex-encoded caller identity")

	cmd.AddCommand(submit, approve, revoke, execute, withdraw)
	return cmd
}

func amountBytes(v uint64) []byte {
	return core.NewTokenAmount(v).Bytes()
}
