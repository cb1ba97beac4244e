package config

import "time"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Address: "127.0.0.1:40000",
			Peers:   nil,
		},
		Storage: StorageConfig{
			DataDir:    "/tmp/cloudkv",
			Backend:    BackendBolt,
			Partitions: 4,
		},
		Raft: RaftConfig{
			ElectionTimeoutMin: 2000 * time.Millisecond,
			ElectionTimeoutMax: 4000 * time.Millisecond,
			HeartbeatInterval:  450 * time.Millisecond,
			DialTimeout:        450 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}
