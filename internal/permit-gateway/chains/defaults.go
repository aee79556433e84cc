package chains

type chainDefault struct {
	Name     string
	Explorer string
	Native   NativeCurrency
}

var ether = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

var chainDefaults = map[uint64]chainDefault{
	// Ethereum
	1:        {"mainnet", "https://etherscan.io", ether},
	11155111: {"sepolia", "https://sepolia.etherscan.io", ether},

	// BNB Smart Chain
	56: {"bsc", "https://bscscan.com", NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18}},
	97: {"bsc-testnet", "https://testnet.bscscan.com", NativeCurrency{Name: "tBNB", Symbol: "tBNB", Decimals: 18}},

	// Layer 2s
	42161: {"arbitrum", "https://arbiscan.io", ether},
	10:    {"optimism", "https://optimistic.etherscan.io", ether},
	8453:  {"base", "https://basescan.org", ether},
	84532: {"base-sepolia", "https://sepolia.basescan.org", ether},

	137:   {"polygon", "https://polygonscan.com", NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18}},
	43114: {"avalanche", "https://snowtrace.io", NativeCurrency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18}},
}

func applyDefaults(n *NetworkConfig) {
	d, ok := chainDefaults[n.ChainID]
	if !ok {
		return
	}
	if n.Name == "" {
		n.Name = d.Name
	}
	if n.Explorer == "" {
		n.Explorer = d.Explorer
	}
	if n.NativeCurrency.Symbol == "" {
		n.NativeCurrency = d.Native
	}
}
