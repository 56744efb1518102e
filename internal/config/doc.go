// Package config loads the opagate configuration.
//
// The configuration is a single YAML document read once at start-up.
// Values may reference the environment with ${VAR} or ${VAR:-default};
// a literal dollar sign is written as $$. Unset fields keep the values
// from DefaultConfig, and Validate checks every section before the
// process starts serving.
//
//	cfg, err := config.LoadConfig("/etc/opagate/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// The loaded Config is never modified afterwards.
package config
