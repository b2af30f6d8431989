package provider

import "time"

// Names of the built-in providers.
const (
	Fitbit = "fitbit"
	Oura   = "oura"
)

// FitbitAdapter returns the Fitbit Web API adapter without credentials.
func FitbitAdapter() ProviderConfig {
	return ProviderConfig{
		Name:            Fitbit,
		DisplayName:     "Fitbit",
		AuthURL:         "https://www.fitbit.com/oauth2/authorize",
		TokenURL:        "https://api.fitbit.com/oauth2/token",
		Scopes:          []string{"activity", "heartrate", "sleep", "profile"},
		DefaultLifetime: 8 * time.Hour,
		SuccessPath:     "/dashboard",
	}
}

// OuraAdapter returns the Oura Cloud API adapter without credentials.
func OuraAdapter() ProviderConfig {
	return ProviderConfig{
		Name:            Oura,
		DisplayName:     "Oura",
		AuthURL:         "https://cloud.ouraring.com/oauth/authorize",
		TokenURL:        "https://api.ouraring.com/oauth/token",
		Scopes:          []string{"daily", "heartrate", "personal"},
		DefaultLifetime: 24 * time.Hour,
		SuccessPath:     "/dashboard",
	}
}
