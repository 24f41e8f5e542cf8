package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/merchforge/api/internal/domain"
)

//go:embed data/ucp-capabilities.json
var capabilitiesRaw []byte

var (
	capabilitiesOnce sync.Once
	capabilitiesDoc  domain.Capabilities
	capabilitiesErr  error
)

// LoadCapabilities returns the merchant capability document, validating it
// on first use.
func LoadCapabilities() (domain.Capabilities, error) {
	capabilitiesOnce.Do(func() {
		var doc domain.Capabilities
		if err := json.Unmarshal(capabilitiesRaw, &doc); err != nil {
			capabilitiesErr = fmt.Errorf("catalog: parse capabilities: %w", err)
			return
		}
		if doc.MerchantID == "" {
			capabilitiesErr = fmt.Errorf("catalog: capabilities merchant_id must be a non-empty string")
			return
		}
		if len(doc.Capabilities) == 0 {
			capabilitiesErr = fmt.Errorf("catalog: capabilities map must not be empty")
			return
		}
		if len(doc.SupportedCurrencies) == 0 {
			capabilitiesErr = fmt.Errorf("catalog: supported_currencies must not be empty")
			return
		}
		if len(doc.SupportedCountries) == 0 {
			capabilitiesErr = fmt.Errorf("catalog: supported_countries must not be empty")
			return
		}
		capabilitiesDoc = doc
	})
	return capabilitiesDoc, capabilitiesErr
}
