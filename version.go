package corebridge

import (
	"github.com/readmaker/corebridge/internal/api"
)

// BridgeVersion returns the version of this module.
func BridgeVersion() string {
	return api.BridgeVersion()
}

// ABIVersion returns the version of the engine ABI the bridge speaks.
func ABIVersion() string {
	return api.ABIVersion()
}
