package crm

// Source tags which configuration tier supplied the active credentials, so
// logs can distinguish a production org from the demo org or a user override.
type Source string

const (
	SourceUserSettings Source = "user-settings"
	SourceEnvironment  Source = "environment"
	SourceDefaultDemo  Source = "default-demo"
)

const (
	// DefaultLoginURL is the production token endpoint host; sandbox orgs
	// use test.salesforce.com instead.
	DefaultLoginURL = "https://login.salesforce.com"
	SandboxLoginURL = "https://test.salesforce.com"
)

// Demo org used when neither user settings nor the environment provide
// credentials. The org only carries the Referral__c demo object; real
// deployments override it through the settings endpoint.
const (
	demoUsername      = "caredesk.demo@eyedocs.example"
	demoPassword      = "CareDeskDemo24"
	demoSecurityToken = "0000000000000000000000000"
)

// Settings are operator-supplied CRM credentials from the settings endpoint.
type Settings struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	SecurityToken string `json:"securityToken"`
	LoginURL      string `json:"loginUrl"`
	Sandbox       bool   `json:"isSandbox"`
}

// EnvCredentials are credentials read from SALESFORCE_* environment
// variables by the configuration layer.
type EnvCredentials struct {
	Username      string
	Password      string
	SecurityToken string
	LoginURL      string
}

// Credentials is the resolved credential set used for one connection
// attempt.
type Credentials struct {
	Username      string
	Password      string
	SecurityToken string
	LoginURL      string
	Source        Source
}

// ResolveCredentials picks the active credential set. Priority, highest
// first: user settings with a non-empty username, environment credentials
// with both username and password, then the built-in demo org. Resolution
// never fails; the demo tier is always present.
func ResolveCredentials(user *Settings, env EnvCredentials) Credentials {
	if user != nil && user.Username != "" {
		loginURL := user.LoginURL
		if loginURL == "" {
			if user.Sandbox {
				loginURL = SandboxLoginURL
			} else {
				loginURL = DefaultLoginURL
			}
		}
		return Credentials{
			Username:      user.Username,
			Password:      user.Password,
			SecurityToken: user.SecurityToken,
			LoginURL:      loginURL,
			Source:        SourceUserSettings,
		}
	}

	if env.Username != "" && env.Password != "" {
		loginURL := env.LoginURL
		if loginURL == "" {
			loginURL = DefaultLoginURL
		}
		return Credentials{
			Username:      env.Username,
			Password:      env.Password,
			SecurityToken: env.SecurityToken,
			LoginURL:      loginURL,
			Source:        SourceEnvironment,
		}
	}

	return Credentials{
		Username:      demoUsername,
		Password:      demoPassword,
		SecurityToken: demoSecurityToken,
		LoginURL:      DefaultLoginURL,
		Source:        SourceDefaultDemo,
	}
}
