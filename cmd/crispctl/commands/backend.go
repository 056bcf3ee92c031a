package commands

import (
	"errors"
	"fmt"

	"github.com/crispcore/gocrisp/internal/crisp"
	"github.com/crispcore/gocrisp/internal/cryptoback"
)

// errUnknownBackend indicates --backend named a backend crispctl does not recognize.
var errUnknownBackend = errors.New("unknown crypto backend")

// errUnknownSuite indicates --suite named a suite crispctl does not recognize.
var errUnknownSuite = errors.New("unknown suite name")

// newBackend selects a crisp.CryptoCapability implementation by name.
func newBackend(name string) (crisp.CryptoCapability, error) {
	switch name {
	case "dummy", "":
		return &cryptoback.DummyBackend{}, nil
	case "aesref":
		return &cryptoback.AESRefBackend{}, nil
	default:
		return nil, fmt.Errorf("backend %q: %w", name, errUnknownBackend)
	}
}

// parseSuiteName maps a suite name string to a crisp.Suite value.
func parseSuiteName(name string) (crisp.Suite, error) {
	switch name {
	case "CS1":
		return crisp.SuiteCS1, nil
	case "CS2":
		return crisp.SuiteCS2, nil
	case "CS3":
		return crisp.SuiteCS3, nil
	case "CS4":
		return crisp.SuiteCS4, nil
	default:
		return 0, fmt.Errorf("suite %q: %w", name, errUnknownSuite)
	}
}
