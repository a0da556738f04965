package config

import "os"

// parseEnv overlays CRM credentials from the environment. This is the
// middle credential tier: operator-saved settings beat it, the demo org is
// below it.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("SALESFORCE_USERNAME"); ok {
		config.CRMUsername = v
	}
	if v, ok := os.LookupEnv("SALESFORCE_PASSWORD"); ok {
		config.CRMPassword = v
	}
	if v, ok := os.LookupEnv("SALESFORCE_SECURITY_TOKEN"); ok {
		config.CRMSecurityToken = v
	}
	if v, ok := os.LookupEnv("SALESFORCE_LOGIN_URL"); ok {
		config.CRMLoginURL = v
	}
	if v, ok := os.LookupEnv("SALESFORCE_CLIENT_ID"); ok {
		config.CRMClientID = v
	}
	if v, ok := os.LookupEnv("SALESFORCE_CLIENT_SECRET"); ok {
		config.CRMClientSecret = v
	}
}
