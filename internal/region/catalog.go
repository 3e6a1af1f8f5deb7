// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package region provides static lookup tables mapping mobile country
// codes to countries and countries to their licensed cellular bands.
// The catalog is read-only and safe for concurrent use.
package region

// Country describes one entry of the MCC table.
type Country struct {
	MCC  int
	ISO  string
	Name string
}

// RegionContext is the coarse region resolved for an observation. It is
// used to bound spatial searches and to annotate alerts with a human
// readable origin.
type RegionContext struct {
	Country Country
	Bands   []string
	Known   bool
}

// mccTable maps mobile country codes to countries. This is a curated
// subset covering the deployments CellSentry is operated in; unknown MCCs
// resolve to a zero RegionContext rather than an error.
var mccTable = map[int]Country{
	202: {202, "GR", "Greece"},
	204: {204, "NL", "Netherlands"},
	206: {206, "BE", "Belgium"},
	208: {208, "FR", "France"},
	214: {214, "ES", "Spain"},
	216: {216, "HU", "Hungary"},
	219: {219, "HR", "Croatia"},
	220: {220, "RS", "Serbia"},
	222: {222, "IT", "Italy"},
	226: {226, "RO", "Romania"},
	228: {228, "CH", "Switzerland"},
	230: {230, "CZ", "Czechia"},
	231: {231, "SK", "Slovakia"},
	232: {232, "AT", "Austria"},
	234: {234, "GB", "United Kingdom"},
	235: {235, "GB", "United Kingdom"},
	238: {238, "DK", "Denmark"},
	240: {240, "SE", "Sweden"},
	242: {242, "NO", "Norway"},
	244: {244, "FI", "Finland"},
	246: {246, "LT", "Lithuania"},
	247: {247, "LV", "Latvia"},
	248: {248, "EE", "Estonia"},
	250: {250, "RU", "Russia"},
	255: {255, "UA", "Ukraine"},
	260: {260, "PL", "Poland"},
	262: {262, "DE", "Germany"},
	268: {268, "PT", "Portugal"},
	270: {270, "LU", "Luxembourg"},
	272: {272, "IE", "Ireland"},
	284: {284, "BG", "Bulgaria"},
	286: {286, "TR", "Turkey"},
	293: {293, "SI", "Slovenia"},
	302: {302, "CA", "Canada"},
	310: {310, "US", "United States"},
	311: {311, "US", "United States"},
	312: {312, "US", "United States"},
	313: {313, "US", "United States"},
	316: {316, "US", "United States"},
	334: {334, "MX", "Mexico"},
	404: {404, "IN", "India"},
	405: {405, "IN", "India"},
	440: {440, "JP", "Japan"},
	441: {441, "JP", "Japan"},
	450: {450, "KR", "South Korea"},
	454: {454, "HK", "Hong Kong"},
	460: {460, "CN", "China"},
	466: {466, "TW", "Taiwan"},
	505: {505, "AU", "Australia"},
	510: {510, "ID", "Indonesia"},
	515: {515, "PH", "Philippines"},
	520: {520, "TH", "Thailand"},
	525: {525, "SG", "Singapore"},
	530: {530, "NZ", "New Zealand"},
	602: {602, "EG", "Egypt"},
	621: {621, "NG", "Nigeria"},
	655: {655, "ZA", "South Africa"},
	722: {722, "AR", "Argentina"},
	724: {724, "BR", "Brazil"},
	730: {730, "CL", "Chile"},
	732: {732, "CO", "Colombia"},
}

// bandTable maps ISO country codes to the cellular bands licensed there.
// Band names follow common operator convention (GSM in MHz, LTE by band
// number). Countries not listed fall back to defaultBands.
var bandTable = map[string][]string{
	"US": {"GSM850", "GSM1900", "UMTS850", "UMTS1900", "LTE-B2", "LTE-B4", "LTE-B12", "LTE-B13", "LTE-B66", "NR-n41", "NR-n71"},
	"CA": {"GSM850", "GSM1900", "UMTS850", "LTE-B2", "LTE-B4", "LTE-B7", "LTE-B13", "NR-n66"},
	"GB": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"DE": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"FR": {"GSM900", "GSM1800", "UMTS900", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"IT": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"ES": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"NL": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"PL": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20", "NR-n78"},
	"SI": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B20", "NR-n78"},
	"JP": {"UMTS2100", "LTE-B1", "LTE-B3", "LTE-B19", "LTE-B28", "NR-n77", "NR-n78", "NR-n79"},
	"KR": {"UMTS2100", "LTE-B1", "LTE-B3", "LTE-B5", "LTE-B7", "NR-n78"},
	"CN": {"GSM900", "GSM1800", "LTE-B38", "LTE-B39", "LTE-B40", "LTE-B41", "NR-n41", "NR-n78", "NR-n79"},
	"IN": {"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B5", "LTE-B40", "NR-n78"},
	"AU": {"GSM900", "UMTS850", "UMTS900", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B28", "NR-n78"},
	"BR": {"GSM850", "GSM900", "GSM1800", "UMTS850", "LTE-B3", "LTE-B7", "LTE-B28", "NR-n78"},
}

// defaultBands is the fallback band set for countries without a dedicated
// entry: the globally common GSM/UMTS/LTE allocations.
var defaultBands = []string{"GSM900", "GSM1800", "UMTS2100", "LTE-B1", "LTE-B3", "LTE-B7", "LTE-B20"}

// Catalog resolves coarse region context for observations. The zero value
// is not usable; construct with NewCatalog.
type Catalog struct {
	mcc   map[int]Country
	bands map[string][]string
}

// NewCatalog returns the built-in region catalog.
func NewCatalog() *Catalog {
	return &Catalog{mcc: mccTable, bands: bandTable}
}

// CountryForMCC returns the country assigned a mobile country code.
func (c *Catalog) CountryForMCC(mcc int) (Country, bool) {
	country, ok := c.mcc[mcc]
	return country, ok
}

// BandsForCountry returns the licensed bands for an ISO country code.
// Unlisted countries get the global default allocation; the returned
// slice must not be modified.
func (c *Catalog) BandsForCountry(iso string) []string {
	if bands, ok := c.bands[iso]; ok {
		return bands
	}
	return defaultBands
}

// Resolve returns the region context for a mobile country code. Unknown
// MCCs yield Known=false with the default band set so callers can still
// bound searches.
func (c *Catalog) Resolve(mcc int) RegionContext {
	country, ok := c.mcc[mcc]
	if !ok {
		return RegionContext{Bands: defaultBands}
	}
	return RegionContext{
		Country: country,
		Bands:   c.BandsForCountry(country.ISO),
		Known:   true,
	}
}
