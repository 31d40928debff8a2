package strain

// Scoring bundles every tunable of the model so it can be loaded and audited as one document.
type Scoring struct {
	Strain         LinearPolicy             `toml:"strain"`
	ClientLoad     LinearPolicy             `toml:"client_load"`
	Readiness      ReadinessParams          `toml:"readiness"`
	Clients        ClientLoadParams         `toml:"clients"`
	Recommendation RecommendationThresholds `toml:"recommendation"`
}

// DefaultScoring returns the stock constants for every part of the model.
func DefaultScoring() Scoring {
	return Scoring{
		Strain:         DefaultStrainPolicy(),
		ClientLoad:     DefaultClientLoadPolicy(),
		Readiness:      DefaultReadinessParams(),
		Clients:        DefaultClientLoadParams(),
		Recommendation: DefaultRecommendationThresholds(),
	}
}
