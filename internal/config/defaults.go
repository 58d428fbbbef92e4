package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

// DefaultSystemPrompt keeps the proxy to general health advice.
const DefaultSystemPrompt = "You are a medical assistant. Provide general health advice only. Do not diagnose, prescribe medicine, or replace professional medical care."

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"provider": "groq",
		"groq": map[string]interface{}{
			"api_key":  "",
			"base_url": "https://api.groq.com/openai/v1",
			"timeout":  30,
		},
		"deepseek": map[string]interface{}{
			"api_key": "",
			"timeout": 30,
		},
		"ollama": map[string]interface{}{
			"base_url": "http://localhost:11434",
			"timeout":  120,
		},
		"model": map[string]interface{}{
			"name":          "llama-3.1-8b-instant",
			"max_tokens":    600,
			"temperature":   0.4,
			"system_prompt": DefaultSystemPrompt,
		},
		"server": map[string]interface{}{
			"addr":             ":8888",
			"read_timeout":     10,
			"write_timeout":    60,
			"shutdown_timeout": 15,
		},
		"reminders": map[string]interface{}{
			"interval":    15,
			"storage_key": "medReminders",
			"player":      "",
		},
		"storage": map[string]interface{}{
			"backend":        "file",
			"dir":            "~/.mediconnect",
			"redis_url":      "",
			"redis_password": "",
			"redis_db":       0,
		},
		"notify": map[string]interface{}{
			"terminal": true,
			"telegram": map[string]interface{}{
				"bot_token": "",
				"chat_id":   "",
			},
			"discord": map[string]interface{}{
				"webhook_id":    "",
				"webhook_token": "",
			},
		},
		"log": map[string]interface{}{
			"level":    "info",
			"encoding": "console",
			"output":   "stderr",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.mediconnect/config.yaml"
}
