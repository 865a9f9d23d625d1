// Package config loads the HMI service configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// GRAYLOGIC_* environment variables, then Validate. Secrets (OPC UA and
// broker passwords, the JWT secret) belong in the environment; operator
// passwords are only ever stored as argon2id hashes.
//
// Machine point tables are not part of this file. They live in the YAML
// file named by machine.points_file and are loaded by package machine.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	interval := cfg.Monitor.ActiveDuration()
package config
