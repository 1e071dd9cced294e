// Package entity holds the records exchanged with the hosted record store
// and the notification ledger.
package entity

import "github.com/shopspring/decimal"

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}
