package crisp

import "fmt"

// Suite identifies a CRISP cryptographic suite (CS=1..4).
type Suite uint8

const (
	// SuiteCS1 is MAGMA-CTR-CMAC: encryption enabled, 4-byte ICV.
	SuiteCS1 Suite = 1
	// SuiteCS2 is MAGMA-NULL-CMAC: no encryption, 4-byte ICV.
	SuiteCS2 Suite = 2
	// SuiteCS3 is MAGMA-CTR-CMAC8: encryption enabled, 8-byte ICV.
	SuiteCS3 Suite = 3
	// SuiteCS4 is MAGMA-NULL-CMAC8: no encryption, 8-byte ICV.
	SuiteCS4 Suite = 4
)

// suiteNames maps suite values to human-readable names.
var suiteNames = [...]string{
	SuiteCS1: "CS1",
	SuiteCS2: "CS2",
	SuiteCS3: "CS3",
	SuiteCS4: "CS4",
}

// String returns the suite's short name, or Unknown(n) for unrecognized values.
func (s Suite) String() string {
	if int(s) < len(suiteNames) && suiteNames[s] != "" {
		return suiteNames[s]
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

// SuiteParams holds the derived parameters for a selected suite.
type SuiteParams struct {
	ICVSize            int
	EncryptionEnabled bool
}

// GetSuiteParams resolves the parameters for suite. Returns ErrUnsupportedSuite
// for any value outside CS1..CS4.
func GetSuiteParams(suite Suite) (SuiteParams, error) {
	switch suite {
	case SuiteCS1:
		return SuiteParams{ICVSize: 4, EncryptionEnabled: true}, nil
	case SuiteCS2:
		return SuiteParams{ICVSize: 4, EncryptionEnabled: false}, nil
	case SuiteCS3:
		return SuiteParams{ICVSize: 8, EncryptionEnabled: true}, nil
	case SuiteCS4:
		return SuiteParams{ICVSize: 8, EncryptionEnabled: false}, nil
	default:
		return SuiteParams{}, ErrUnsupportedSuite
	}
}
