package environment

import "os"

// Environment represents application deployment environment.
type Environment string

const (
	// Development for development environment.
	Development Environment = "development"
	// Production for production environment.
	Production Environment = "production"
	// Staging for staging environment.
	Staging Environment = "staging"
)

// Parse normalizes a raw environment string, accepting common short forms.
// Unknown values fall back to Development so that misconfiguration never
// enables production-only behavior by accident.
func Parse(raw string) Environment {
	switch raw {
	case string(Production), "prod":
		return Production
	case string(Staging), "stage":
		return Staging
	default:
		return Development
	}
}

// Current reads the environment from the APP_ENV variable.
func Current() Environment {
	return Parse(os.Getenv("APP_ENV"))
}

// IsProduction checks if the environment is production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// IsDevelopment checks if the environment is development.
func (e Environment) IsDevelopment() bool {
	return e == Development
}

// IsStaging checks if the environment is staging.
func (e Environment) IsStaging() bool {
	return e == Staging
}

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}
