// Package config loads the console configuration.
//
// The configuration lives in an HCL file (yuictl.hcl by default):
//
//	server      = "https://panel.example.com:2053"
//	base_path   = "/api/v1"
//	timeout     = "30s"
//	fingerprint = "9f86d0..."
//
//	logging {
//	  level = "info"
//	}
//
// Values from the environment (YUI_SERVER, YUI_STATE, YUI_LOG_LEVEL,
// YUI_INSECURE) override the file; command-line flags override both.
package config
