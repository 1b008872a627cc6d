package domain

import (
	"fmt"
	"strings"
)

// OrderReference is the stable cross-system key linking a storefront
// order to its RMS row: exactly "SHOPIFY-" + <numeric external id>.
type OrderReference string

const referencePrefix = "SHOPIFY-"

// NewOrderReference builds the reference for a legacy id.
func NewOrderReference(legacyID string) OrderReference {
	return OrderReference(referencePrefix + legacyID)
}

// Valid reports whether r has the required prefix.
func (r OrderReference) Valid() bool {
	return strings.HasPrefix(string(r), referencePrefix)
}

func (r OrderReference) String() string {
	return string(r)
}

// ExtractLegacyID resolves the numeric legacy id for a storefront
// order using the fallback chain the original polling service applies:
// the explicit LegacyID field first, then the trailing digits of the
// GID (gid://shopify/Order/<digits>), then the order Name with its
// leading '#' stripped.
func ExtractLegacyID(o StorefrontOrder) (string, error) {
	if o.LegacyID != "" {
		return o.LegacyID, nil
	}
	if o.ExternalID != "" {
		if idx := strings.LastIndex(o.ExternalID, "/"); idx != -1 && idx+1 < len(o.ExternalID) {
			id := o.ExternalID[idx+1:]
			if id != "" {
				return id, nil
			}
		}
	}
	if o.Name != "" {
		return strings.TrimPrefix(o.Name, "#"), nil
	}
	return "", fmt.Errorf("order has no LegacyID, ExternalID, or Name to derive a reference number from")
}

// ReferenceFor is the spec §4.6 rule 1 entry point: derive the
// OrderReference for a storefront order.
func ReferenceFor(o StorefrontOrder) (OrderReference, error) {
	legacyID, err := ExtractLegacyID(o)
	if err != nil {
		return "", err
	}
	return NewOrderReference(legacyID), nil
}
