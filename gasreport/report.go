package gasreport

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

type Entry struct {
	Contract string
	GasUsed  uint64
	GasPrice *big.Int
}

// Cost is the paid fee in wei.
func (e Entry) Cost() *big.Int {
	price := e.GasPrice
	if price == nil {
		price = new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(e.GasUsed), price)
}

// Report summarises deployment gas and its price in the native token and a fiat currency.
type Report struct {
	Currency string
	Token    string
	Entries  []Entry

	price    decimal.Decimal
	hasPrice bool
}

func New(currency, token string) *Report {
	if currency == "" {
		currency = "USD"
	}
	if token == "" {
		token = "ETH"
	}
	return &Report{Currency: currency, Token: token}
}

func (r *Report) Add(contract string, gasUsed uint64, gasPrice *big.Int) {
	r.Entries = append(r.Entries, Entry{Contract: contract, GasUsed: gasUsed, GasPrice: gasPrice})
}

// SetPrice records the token price in the report currency.
func (r *Report) SetPrice(price decimal.Decimal) {
	r.price = price
	r.hasPrice = true
}

func (r *Report) FetchPrice(ctx context.Context, src PriceSource) error {
	price, err := src.Price(ctx, r.Token, r.Currency)
	if err != nil {
		return err
	}
	r.SetPrice(price)
	return nil
}

func (r *Report) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Deployment\tGas\tGwei\t%s\t%s\t\n", r.Token, r.Currency)

	var totalGas uint64
	total := new(big.Int)
	for _, e := range r.Entries {
		totalGas += e.GasUsed
		total.Add(total, e.Cost())
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			e.Contract, e.GasUsed, gwei(e.GasPrice), ether(e.Cost()).StringFixed(6), r.fiat(e.Cost()))
	}
	if len(r.Entries) > 1 {
		fmt.Fprintf(tw, "Total\t%d\t\t%s\t%s\t\n", totalGas, ether(total).StringFixed(6), r.fiat(total))
	}
	return tw.Flush()
}

func (r *Report) fiat(wei *big.Int) string {
	if !r.hasPrice {
		return "-"
	}
	return ether(wei).Mul(r.price).StringFixed(2)
}

func ether(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}

func gwei(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	return decimal.NewFromBigInt(wei, -9).String()
}
