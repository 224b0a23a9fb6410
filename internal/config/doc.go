// Package config loads ropesync settings.
//
// Settings are resolved in layers, each overriding the one below:
//
//	┌─────────────────────────────┐
//	│  4. Command line flags      │  ← applied by the caller
//	├─────────────────────────────┤
//	│  3. Environment variables   │  ← ROPESYNC_SECTION_KEY
//	├─────────────────────────────┤
//	│  2. Config file             │  ← ropesync.toml / ropesync.yaml
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, err := config.Load("ropesync.toml")
//	if err != nil {
//	    return err
//	}
//	hubCfg := cfg.Server.HubConfig()
//
// Durations are written as strings ("250ms", "5s"). Unknown keys are
// rejected so typos surface at startup.
package config
