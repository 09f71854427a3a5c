package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/cryptofolio"
)

// TaxReportMarkdown renders a yearly tax report as a markdown document with
// the capital-gains and foreign-assets sections.
func TaxReportMarkdown(report *cryptofolio.TaxReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tax Report %d\n\n", report.Year)
	fmt.Fprintf(&b, "Method: %s\n\n", report.Method)

	fmt.Fprint(&b, "## Capital Gains (Quadro RT)\n\n")
	fmt.Fprintln(&b, "| | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Total proceeds | %s |\n", cryptofolio.EUR(report.TotaleVendite))
	fmt.Fprintf(&b, "| Cost basis | %s |\n", cryptofolio.EUR(report.CostoAcquisto))
	fmt.Fprintf(&b, "| Gains | %s |\n", cryptofolio.SignedEUR(report.Plusvalenza))
	fmt.Fprintf(&b, "| Losses | %s |\n", cryptofolio.SignedEUR(report.Minusvalenza.Neg()))
	fmt.Fprintf(&b, "| **Tax due (26%%)** | **%s** |\n\n", cryptofolio.EUR(report.Imposta))

	if len(report.Disposals) > 0 {
		fmt.Fprint(&b, "### Disposals\n\n")
		fmt.Fprintln(&b, "| Date | Coin | Amount | Proceeds | Cost Basis | Gain |")
		fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|")
		for _, d := range report.Disposals {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				d.Date, d.Coin,
				cryptofolio.Crypto(d.Amount),
				cryptofolio.EUR(d.Proceeds),
				cryptofolio.EUR(d.CostBasis),
				cryptofolio.SignedEUR(d.Gain),
			)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprint(&b, "## Foreign Assets (Quadro RW)\n\n")
	fmt.Fprintln(&b, "| Coin | Value Jan 1 | Value Dec 31 | Days | IVAFE |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|")
	for _, row := range report.RWRows {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
			row.Coin,
			cryptofolio.EUR(row.ValoreIniziale),
			cryptofolio.EUR(row.ValoreFinale),
			row.Giorni,
			cryptofolio.EUR(row.IVAFE),
		)
	}
	fmt.Fprintf(&b, "| **Total** | **%s** | **%s** | %d | **%s** |\n",
		cryptofolio.EUR(report.RWValoreIniziale),
		cryptofolio.EUR(report.RWValoreFinale),
		report.RWGiorniDetenzione,
		cryptofolio.EUR(report.IVAFE),
	)

	if len(report.Warnings) > 0 {
		fmt.Fprint(&b, "\n## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
