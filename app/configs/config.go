package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Workers  WorkersConfig  `json:"workers"`
	Remote   RemoteConfig   `json:"remote"`
	Pipeline PipelineConfig `json:"pipeline"`
	Brain    BrainConfig    `json:"brain"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type WorkersConfig struct {
	IdeaURL        string `json:"idea_url"`
	CriticURL      string `json:"critic_url"`
	PrioritizerURL string `json:"prioritizer_url"`
}

type RemoteConfig struct {
	MaxAttempts    int `json:"max_attempts"`
	RetryBaseMs    int `json:"retry_base_ms"`
	CallTimeoutSec int `json:"call_timeout_sec"`
}

type PipelineConfig struct {
	BudgetSec           int `json:"budget_sec"`
	CritiqueConcurrency int `json:"critique_concurrency"`
	// RetentionMin prunes terminal tasks older than this many minutes.
	// 0 (the default) keeps every task for the process lifetime.
	RetentionMin int `json:"retention_min"`
}

type BrainConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	mgr.applyEnv()
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

// applyEnv keeps the worker URL contract the deployment scripts already use.
func (m *Manager) applyEnv() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := strings.TrimSpace(os.Getenv("IDEA_WORKER_URL")); v != "" {
		m.cfg.Workers.IdeaURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CRITIC_WORKER_URL")); v != "" {
		m.cfg.Workers.CriticURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PRIORITIZER_WORKER_URL")); v != "" {
		m.cfg.Workers.PrioritizerURL = v
	}
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: 9999,
		},
		Workers: WorkersConfig{
			IdeaURL:        "http://localhost:9991",
			CriticURL:      "http://localhost:9992",
			PrioritizerURL: "http://localhost:9993",
		},
		Remote: RemoteConfig{
			MaxAttempts:    3,
			RetryBaseMs:    500,
			CallTimeoutSec: 60,
		},
		Pipeline: PipelineConfig{
			BudgetSec:           120,
			CritiqueConcurrency: 5,
		},
		Brain: BrainConfig{
			Provider: "static",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 9999
	}
	if strings.TrimSpace(cfg.Workers.IdeaURL) == "" {
		cfg.Workers.IdeaURL = "http://localhost:9991"
	}
	if strings.TrimSpace(cfg.Workers.CriticURL) == "" {
		cfg.Workers.CriticURL = "http://localhost:9992"
	}
	if strings.TrimSpace(cfg.Workers.PrioritizerURL) == "" {
		cfg.Workers.PrioritizerURL = "http://localhost:9993"
	}
	if cfg.Remote.MaxAttempts <= 0 {
		cfg.Remote.MaxAttempts = 3
	}
	if cfg.Remote.RetryBaseMs <= 0 {
		cfg.Remote.RetryBaseMs = 500
	}
	if cfg.Remote.CallTimeoutSec <= 0 {
		cfg.Remote.CallTimeoutSec = 60
	}
	if cfg.Pipeline.BudgetSec <= 0 {
		cfg.Pipeline.BudgetSec = 120
	}
	if cfg.Pipeline.CritiqueConcurrency <= 0 {
		cfg.Pipeline.CritiqueConcurrency = 5
	}
	if cfg.Pipeline.RetentionMin < 0 {
		cfg.Pipeline.RetentionMin = 0
	}
	if strings.TrimSpace(cfg.Brain.Provider) == "" {
		cfg.Brain.Provider = "static"
	}
}
