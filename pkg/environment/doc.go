// Package environment provides deployment environment detection and helpers.
//
// The package distinguishes development, staging, and production deployments
// so that behavior such as background keep-alive probing or logger defaults
// can be gated on the deployment mode.
//
// Basic usage:
//
//	env := environment.Current()
//	if env.IsProduction() {
//		pinger.Start()
//	}
package environment
