package contract

// DefaultCompanyContext returns the profile a fresh installation starts with.
func DefaultCompanyContext() CompanyContext {
	return CompanyContext{
		CompanyName:    "Zenith Solar",
		Mission:        "Affordable, sustainable power for every home so families stop living around rolling blackouts.",
		Services:       "1. Residential solar panels (5 kW and 10 kW packages)\n2. Long-life lithium batteries\n3. 10-year warranty\n4. Professional installation within 48 hours.",
		PricingPolicy:  "The 5 kW package is $2500 including installation. 12-month installments available.",
		TargetAudience: "Families and small businesses looking for stable power and long-term savings.",
		BuyingStage:    StageConsideration,
	}
}

// DefaultCustomerContext is intentionally empty.
func DefaultCustomerContext() CustomerContext {
	return CustomerContext{}
}
