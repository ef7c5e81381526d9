package domain

// Chain identifies a blockchain network with its own explorer.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainPolygon  Chain = "polygon"
	ChainTron     Chain = "tron"
)

// WalletAddress is a receiving wallet payments can be sent to.
type WalletAddress struct {
	ID            string
	Chain         Chain
	Currency      string
	Address       string
	TokenContract string // empty for the chain's native coin
	TokenDecimals int
	Label         string
	IsActive      bool
}

// LedgerTransfer is a transfer observed on a blockchain, in display units.
type LedgerTransfer struct {
	Hash      string
	From      string
	To        string
	Value     float64
	Timestamp int64
}
