/*
Package config provides type-safe configuration extraction from map[string]any.

Config wraps a decoded YAML or JSON document and exposes typed accessors
that return a default when a key is missing or has the wrong type. Keys may
be dotted paths into nested maps:

	cfg, err := config.FromFile("taskmentor.yaml")
	if err != nil {
	    return err
	}

	driver := cfg.String("store.driver", "memory")
	timeout := cfg.Duration("llm.timeout", 60*time.Second)
	llmCfg := cfg.Section("llm")

Environment variables override file values with ApplyEnv:

	cfg = cfg.ApplyEnv(map[string]string{
	    "store.uri":      "MONGODB_URL",
	    "llm.openai_key": "OPENAI_API_KEY",
	})

Duration accepts strings ("30s"), numbers (seconds) and time.Duration.
Int accepts floats only when they have no fractional part.

Config values are never mutated; Set and ApplyEnv return copies.
*/
package config
