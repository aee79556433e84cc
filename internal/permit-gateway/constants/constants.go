package constants

const (
	AppName      = "permit-gateway"
	KeystoreFile = "wallet.json"
	StoreFile    = "authorizations.db"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// AAD for the local keystore envelope (must match on decrypt).
	KeystoreAAD = "permit-gateway:keystore:v1"

	// EIP-1193 provider error codes.
	ProviderCodeUserRejected   = 4001
	ProviderCodeUnauthorized   = 4100
	ProviderCodeUnsupported    = 4200
	ProviderCodeDisconnected   = 4900
	ProviderCodeChainNotLinked = 4901
	ProviderCodeUnknownChain   = 4902

	// JSON-RPC 2.0 codes.
	RPCCodeInvalidParams = -32602
	RPCCodeInternal      = -32603

	DisplayDecimalsDefault = 6
)
