package config

import "time"

// Storage backends.
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Config holds the complete node configuration.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Storage StorageConfig `yaml:"storage"`
	Raft    RaftConfig    `yaml:"raft"`
	Logging LogConfig     `yaml:"logging"`
}

// NodeConfig holds the node's identity and its replication group.
type NodeConfig struct {
	Address string   `yaml:"address"`
	Peers   []string `yaml:"peers"`
}

// StorageConfig holds storage engine configuration.
type StorageConfig struct {
	DataDir    string `yaml:"dataDir"`
	Backend    string `yaml:"backend"`
	Partitions int    `yaml:"partitions"`
}

// RaftConfig holds consensus timing.
type RaftConfig struct {
	ElectionTimeoutMin time.Duration `yaml:"electionTimeoutMin"`
	ElectionTimeoutMax time.Duration `yaml:"electionTimeoutMax"`
	HeartbeatInterval  time.Duration `yaml:"heartbeatInterval"`
	DialTimeout        time.Duration `yaml:"dialTimeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}
