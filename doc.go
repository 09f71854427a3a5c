// Package cryptofolio aggregates cryptocurrency holdings and transaction
// history from wallets (EVM, Cosmos and Solana chains) and exchange feeds
// into one normalized ledger, values it in EUR, and derives Italian
// capital-gains and monitoring tax figures from it.
//
// Every source converts its native records into the canonical [Transaction]
// and [Balance] shapes. The [Ledger] deduplicates and stores them, the
// [PriceService] resolves EUR prices (live and historical), and the tax
// engine replays the full history through LIFO or average-cost lot matching
// to produce a yearly [TaxReport].
package cryptofolio
