package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	model "github.com/coinmeca/flashloan-deployer"
	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/coinmeca/flashloan-deployer/contractdb"
	"github.com/coinmeca/flashloan-deployer/historydb"
	"github.com/spf13/cobra"
)

func (rc *RootCommand) deploymentsCommand() *cobra.Command {
	var contract string

	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "List the recorded deployments on the selected network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.deployments(cmd.Context(), contract)
		},
	}
	cmd.Flags().StringVar(&contract, "contract", "", "Only list the transactions of this contract")
	return cmd
}

func (rc *RootCommand) deployments(ctx context.Context, contract string) error {
	c := rc.config
	if len(c.Repositories) == 0 {
		return fmt.Errorf("%w: no repository is configured", conf.ErrInvalidConfig)
	}
	n, err := c.Network(rc.network)
	if err != nil {
		return err
	}
	chainId, err := rc.chainId(ctx, n)
	if err != nil {
		return err
	}

	repos, err := model.NewRepositories(c)
	if err != nil {
		return err
	}
	defer repos.Close(ctx)

	id := chainId.String()
	var db *contractdb.ContractDB
	if repos.Has(&db) {
		if err := repos.Get(&db); err != nil {
			return err
		}
		contracts, err := db.GetContracts(ctx, id)
		if err != nil {
			return err
		}
		checkpoint, err := db.GetCheckpoint(ctx, id)
		if err != nil {
			return err
		}
		if err := renderContracts(rc.stdout, checkpoint, contracts); err != nil {
			return err
		}
	}

	var history *historydb.HistoryDB
	if repos.Has(&history) {
		if err := repos.Get(&history); err != nil {
			return err
		}
		txs, err := history.GetTransactions(ctx, id, contract)
		if err != nil {
			return err
		}
		return renderTransactions(rc.stdout, txs)
	}
	return nil
}

// renderContracts prints the latest deployment of every contract name and the chain checkpoint.
func renderContracts(w io.Writer, checkpoint uint64, contracts []*contractdb.Contract) error {
	fmt.Fprintf(w, "Checkpoint: %d\n", checkpoint)
	if len(contracts) == 0 {
		fmt.Fprintln(w, "No contracts recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tBLOCK\tVERIFIED\tDEPLOYED\t")
	for _, c := range contracts {
		verified := "no"
		if c.Verified {
			verified = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n", c.Name, c.Address, c.BlockNumber, verified, c.DeployedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func renderTransactions(w io.Writer, txs []*historydb.Tx) error {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tCONTRACT\tADDRESS\tBLOCK\tGAS USED\tGAS PRICE\t")
	for _, tx := range txs {
		price := tx.EffectiveGasPrice
		if price == "" {
			price = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t\n", tx.Hash, tx.Contract, tx.Address, tx.BlockNumber, tx.GasUsed, price)
	}
	return tw.Flush()
}
