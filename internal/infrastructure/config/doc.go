// Package config loads and validates the masquerade service configuration.
//
// Configuration comes from a YAML file layered over built-in defaults, then
// environment variables prefixed MASQUERADE_ override selected keys. Secrets
// such as the MQTT password and InfluxDB token are expected to arrive through
// the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load(config.PathFromEnv())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Service.Name)
package config
