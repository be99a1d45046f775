// Package config loads typed configuration structs from environment variables.
//
// Values are parsed from env-tagged struct fields, with an optional .env file
// loaded once per process for local development convenience.
//
// Basic usage:
//
//	var cfg session.Config
//	config.MustLoad(&cfg)
package config
