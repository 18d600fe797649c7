package api

// Version of the bridge and the engine ABI it speaks. The ABI version only
// changes when a symbol in RequiredSymbols changes shape.
const (
	bridgeVersion = "0.4.2"
	abiVersion    = "1"
)

// BridgeVersion returns the version of this bridge as a string.
func BridgeVersion() string {
	return bridgeVersion
}

// ABIVersion returns the engine ABI version the bridge was built against.
func ABIVersion() string {
	return abiVersion
}
