package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `cloudkv - partitioned, replicated key-value store

Usage:
  cloudkv <command> [options]

Commands:
  serve       Start a node
  ctl         Send a request to a node
  config      Configuration management
  version     Show version information

Use "cloudkv <command> -h" for more information about a command.
`)
}

// printServeUsage prints the serve command usage.
func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Start a node

Usage:
  cloudkv serve [options]

Options:
  -config string
        Path to configuration file
  -address string
        Node address, used for listening and by peers (overrides config)
  -peers string
        Comma-separated addresses of the other nodes (overrides config)
  -data-dir string
        Data directory path (overrides config, default "/tmp/cloudkv")
  -backend string
        Storage backend: bolt, memory (overrides config)
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -h, -help
        Show this help message

Environment Variables:
  CLOUDKV_NODE_ADDRESS       Override node address
  CLOUDKV_NODE_PEERS         Override peer list (comma-separated)
  CLOUDKV_STORAGE_DATA_DIR   Override data directory path
  CLOUDKV_STORAGE_BACKEND    Override storage backend
  CLOUDKV_LOGGING_LEVEL      Override log level
  CLOUDKV_LOGGING_FORMAT     Override log format
  CLOUDKV_LOGGING_OUTPUT     Override log output

When started with -config, changes to the logging section of the file are
applied without a restart.
`)
}

// printCtlUsage prints the ctl command usage.
func printCtlUsage(w io.Writer) {
	fmt.Fprint(w, `Send a request to a node

Usage:
  cloudkv ctl [options] <address> <operation> [arguments]

Operations:
  put <key> <value>    Store a value (leader only)
  get <key>...         Read values (leader only)
  del <key>...         Delete keys (leader only)
  direct_get <key>...  Read the node's local values, on any node
  leader               Show the node's leader hint
  dropped              Show the peers the leader cannot reach
  join <address>       Ask the cluster to admit a node

put also accepts a single "<key> <value>" argument.

Options:
  -timeout duration
        Request timeout (default 5s)
  -h, -help
        Show this help message
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  cloudkv config <subcommand> [options]

Subcommands:
  validate    Validate a configuration file
  init        Print the default configuration
  show        Print the effective configuration
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  cloudkv version [options]

Options:
  -short
        Show only version number
  -json
        Print build information as JSON
  -h, -help
        Show this help message
`)
}
