package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (rc *RootCommand) networksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the configured networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.listNetworks()
		},
	}
}

// listNetworks prints every descriptor with its url template, so keys never reach the output.
func (rc *RootCommand) listNetworks() error {
	tw := tabwriter.NewWriter(rc.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tCHAIN\tURL\tACCOUNTS\t")

	for _, name := range rc.config.NetworkNames() {
		n, err := rc.config.Network(name)
		if err != nil {
			return err
		}

		mark := ""
		if name == rc.networkName() {
			mark = "*"
		}
		chain := "-"
		if n.ChainId != 0 {
			chain = fmt.Sprint(n.ChainId)
		}
		url := n.Url
		if n.IsLocal() {
			url = "local"
			if n.Forking.Url != "" {
				url = "local fork of " + n.Forking.Url
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t\n", mark, name, chain, url, len(n.Accounts))
	}
	return tw.Flush()
}
