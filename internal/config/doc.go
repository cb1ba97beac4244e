// Package config provides configuration parsing and validation for cloudkv
// nodes.
//
// # Overview
//
// Configuration is read from a YAML file. Before parsing, ${VAR} and
// ${VAR:-default} references are replaced with environment values. Keys
// missing from the file keep the values of DefaultConfig; unknown keys are
// an error.
//
//	cfg, err := config.LoadConfig("/etc/cloudkv/node.yaml")
//	if err != nil {
//	    return err
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    for _, e := range errs {
//	        fmt.Println(e)
//	    }
//	}
//
// # Environment Variables
//
// The cloudkv command additionally applies overrides of the form
// CLOUDKV_<SECTION>_<KEY> after loading the file:
//
//	CLOUDKV_NODE_ADDRESS=127.0.0.1:41000
//	CLOUDKV_NODE_PEERS=127.0.0.1:40000,127.0.0.1:42000
//	CLOUDKV_LOGGING_LEVEL=debug
//
// # Reloading
//
// A Watcher polls the file and passes every new configuration that parses
// and validates to a callback. The node only applies logging changes at
// runtime; everything else requires a restart.
//
// # Example Configuration
//
//	node:
//	  address: "127.0.0.1:40000"
//	  peers:
//	    - "127.0.0.1:41000"
//	    - "127.0.0.1:42000"
//
//	storage:
//	  dataDir: "/var/lib/cloudkv"
//	  backend: "bolt"
//	  partitions: 4
//
//	raft:
//	  electionTimeoutMin: 2s
//	  electionTimeoutMax: 4s
//	  heartbeatInterval: 450ms
//	  dialTimeout: 450ms
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "/var/log/cloudkv/node.log"
package config
