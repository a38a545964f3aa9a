package config

import (
	"os"
	"testing"
	"time"
)

var envVarsToTest = []string{
	"SERVER_HOST", "SERVER_PORT", "SERVER_SHUTDOWN_TIMEOUT",
	"GRAPHAPI_BASE_URL", "GRAPHAPI_FIELDS", "GRAPHAPI_TIMEOUT",
	"UPLOAD_MAX_BYTES", "UPLOAD_DIR",
	"NATS_URL", "LOG_LEVEL", "LOG_JSON",
}

// Сохраняет переменные окружения и восстанавливает их после теста
func preserveEnv(t *testing.T) {
	t.Helper()

	originalEnvVars := make(map[string]string)
	for _, envVar := range envVarsToTest {
		originalEnvVars[envVar] = os.Getenv(envVar)
	}

	t.Cleanup(func() {
		for envVar, originalValue := range originalEnvVars {
			if originalValue == "" {
				os.Unsetenv(envVar)
			} else {
				os.Setenv(envVar, originalValue)
			}
		}
	})
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		GraphAPI: GraphAPIConfig{
			BaseURL: "https://graph.facebook.com/me",
			Fields:  "name,id,email",
			Timeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes: 2 * 1024 * 1024,
			Dir:      os.TempDir(),
		},
		NATS: NATSConfig{
			URL: "",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

func TestLoad(t *testing.T) {
	preserveEnv(t)

	tests := []struct {
		name           string
		envVars        map[string]string
		expectedConfig func() Config
	}{
		{
			name:           "default_values",
			envVars:        map[string]string{},
			expectedConfig: defaultConfig,
		},
		{
			name: "custom_server_config",
			envVars: map[string]string{
				"SERVER_HOST":             "127.0.0.1",
				"SERVER_PORT":             "9090",
				"SERVER_SHUTDOWN_TIMEOUT": "5s",
			},
			expectedConfig: func() Config {
				cfg := defaultConfig()
				cfg.Server = ServerConfig{Host: "127.0.0.1", Port: 9090, ShutdownTimeout: 5 * time.Second}
				return cfg
			},
		},
		{
			name: "custom_graphapi_config",
			envVars: map[string]string{
				"GRAPHAPI_BASE_URL": "http://localhost:9999/me",
				"GRAPHAPI_FIELDS":   "name,id",
				"GRAPHAPI_TIMEOUT":  "3s",
			},
			expectedConfig: func() Config {
				cfg := defaultConfig()
				cfg.GraphAPI = GraphAPIConfig{BaseURL: "http://localhost:9999/me", Fields: "name,id", Timeout: 3 * time.Second}
				return cfg
			},
		},
		{
			name: "custom_upload_config",
			envVars: map[string]string{
				"UPLOAD_MAX_BYTES": "1024",
				"UPLOAD_DIR":       "/var/tmp",
			},
			expectedConfig: func() Config {
				cfg := defaultConfig()
				cfg.Upload = UploadConfig{MaxBytes: 1024, Dir: "/var/tmp"}
				return cfg
			},
		},
		{
			name: "custom_nats_config",
			envVars: map[string]string{
				"NATS_URL": "nats://nats.example.com:4222",
			},
			expectedConfig: func() Config {
				cfg := defaultConfig()
				cfg.NATS.URL = "nats://nats.example.com:4222"
				return cfg
			},
		},
		{
			name: "custom_log_config",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
				"LOG_JSON":  "true",
			},
			expectedConfig: func() Config {
				cfg := defaultConfig()
				cfg.Log = LogConfig{Level: "debug", JSON: true}
				return cfg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Очищаем все переменные окружения
			for _, envVar := range envVarsToTest {
				os.Unsetenv(envVar)
			}

			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}

			config, err := Load()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if config == nil {
				t.Error("expected config, but got nil")
				return
			}

			expected := tt.expectedConfig()
			if *config != expected {
				t.Errorf("expected config %+v, but got %+v", expected, *config)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		name         string
		config       *Config
		expectedAddr string
	}{
		{
			name:         "default_config",
			config:       &Config{Server: ServerConfig{Host: "0.0.0.0", Port: 8080}},
			expectedAddr: "0.0.0.0:8080",
		},
		{
			name:         "localhost",
			config:       &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 9090}},
			expectedAddr: "127.0.0.1:9090",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := tt.config.ServerAddr()
			if addr != tt.expectedAddr {
				t.Errorf("expected addr '%s', but got '%s'", tt.expectedAddr, addr)
			}
		})
	}
}

func TestInvalidConfiguration(t *testing.T) {
	preserveEnv(t)

	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "invalid_server_port",
			envVars: map[string]string{"SERVER_PORT": "invalid"},
		},
		{
			name:    "server_port_out_of_range",
			envVars: map[string]string{"SERVER_PORT": "70000"},
		},
		{
			name:    "invalid_graphapi_timeout",
			envVars: map[string]string{"GRAPHAPI_TIMEOUT": "soon"},
		},
		{
			name:    "zero_graphapi_timeout",
			envVars: map[string]string{"GRAPHAPI_TIMEOUT": "0s"},
		},
		{
			name:    "invalid_graphapi_url",
			envVars: map[string]string{"GRAPHAPI_BASE_URL": "not a url"},
		},
		{
			name:    "negative_upload_limit",
			envVars: map[string]string{"UPLOAD_MAX_BYTES": "-1"},
		},
		{
			name:    "unknown_log_level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, envVar := range envVarsToTest {
				os.Unsetenv(envVar)
			}

			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Error("expected error for invalid configuration, but got nil")
			}
		})
	}
}

func TestBooleanConfiguration(t *testing.T) {
	preserveEnv(t)

	tests := []struct {
		name         string
		logJSONValue string
		expectedJSON bool
	}{
		{name: "true_value", logJSONValue: "true", expectedJSON: true},
		{name: "false_value", logJSONValue: "false", expectedJSON: false},
		{name: "1_value", logJSONValue: "1", expectedJSON: true},
		{name: "0_value", logJSONValue: "0", expectedJSON: false},
		{name: "empty_value", logJSONValue: "", expectedJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, envVar := range envVarsToTest {
				os.Unsetenv(envVar)
			}

			if tt.logJSONValue != "" {
				os.Setenv("LOG_JSON", tt.logJSONValue)
			}

			config, err := Load()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if config.Log.JSON != tt.expectedJSON {
				t.Errorf("expected log JSON %t, but got %t", tt.expectedJSON, config.Log.JSON)
			}
		})
	}
}
