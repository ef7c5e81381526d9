package app

import (
	"fmt"
	"log"

	"carpool/internal/config"
	"carpool/internal/domain"
	"carpool/internal/ledger"
)

// NewExplorerRegistry builds one block explorer client per configured chain.
// Chains without a base URL are skipped.
func NewExplorerRegistry(cfg config.LedgerConfig) (*ledger.Registry, error) {
	httpClient := ledger.NewHTTPClient(cfg.Timeout)

	var explorers []ledger.Explorer
	for _, chain := range cfg.Chains {
		if chain.BaseURL == "" {
			log.Printf("ledger: no explorer url for chain %s, skipping", chain.Name)
			continue
		}

		switch chain.Kind {
		case "etherscan":
			explorers = append(explorers, ledger.NewEtherscanClient(httpClient, domain.Chain(chain.Name), chain.BaseURL, chain.APIKey, cfg.Retries))
		case "trongrid":
			explorers = append(explorers, ledger.NewTronGridClient(httpClient, chain.BaseURL, chain.APIKey, cfg.Retries))
		default:
			return nil, fmt.Errorf("ledger: unknown explorer kind %q for chain %s", chain.Kind, chain.Name)
		}
	}

	return ledger.NewRegistry(explorers...), nil
}
