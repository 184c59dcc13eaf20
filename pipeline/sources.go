/*
sources.go - Dimension specs and source snapshot builders

PURPOSE:
  Defines which dimensions the pipeline maintains, which attributes each one
  tracks, and how a clean layer is projected into source-of-truth snapshots
  for reconciliation.

CUSTOMER DIMENSION:
  Natural key: customer id. Tracked: name, email, country, risk profile.
  Any change versions the whole row.

ASSET DIMENSION:
  Natural key: normalized asset symbol. The key space is the union of every
  contributing relation (market history + price snapshot), deduplicated and
  case-normalized. No tracked attributes: assets only ever gain a
  first-appearance row.
*/
package pipeline

import (
	"strconv"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/facts"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// Tracked attribute names of the customer dimension.
const (
	AttrCustomerName = "customer_name"
	AttrEmail        = "email"
	AttrCountry      = "country"
	AttrRiskProfile  = "risk_profile"
)

// CustomerSpec describes the customer dimension.
func CustomerSpec() dimensional.Spec {
	return dimensional.Spec{
		Name:    facts.DimCustomer,
		Tracked: []string{AttrCustomerName, AttrEmail, AttrCountry, AttrRiskProfile},
	}
}

// AssetSpec describes the asset dimension.
func AssetSpec() dimensional.Spec {
	return dimensional.Spec{Name: facts.DimAsset}
}

// CustomerSource projects the clean customers relation into a source
// snapshot for the customer dimension.
func CustomerSource(customers []model.Customer) []dimensional.SourceRow {
	rows := make([]dimensional.SourceRow, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, dimensional.SourceRow{
			Key: dimensional.NaturalKey(strconv.Itoa(c.CustomerID)),
			Attrs: map[string]string{
				AttrCustomerName: c.Name,
				AttrEmail:        c.Email,
				AttrCountry:      c.Country,
				AttrRiskProfile:  c.RiskProfile,
			},
		})
	}
	return rows
}

// AssetSource unions the asset symbols of every contributing clean relation.
// Reconcile deduplicates and case-normalizes the keys.
func AssetSource(history []model.MarketHistory, snapshot []model.PriceSnapshot) []dimensional.SourceRow {
	rows := make([]dimensional.SourceRow, 0, len(history)+len(snapshot))
	for _, h := range history {
		rows = append(rows, dimensional.SourceRow{Key: dimensional.NaturalKey(h.Asset)})
	}
	for _, p := range snapshot {
		rows = append(rows, dimensional.SourceRow{Key: dimensional.NaturalKey(p.Asset)})
	}
	return rows
}
