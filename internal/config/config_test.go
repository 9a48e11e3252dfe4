package config

import "testing"

func TestBrokers(t *testing.T) {
	cfg := Config{PushBrokers: " kafka-1:9092, ,kafka-2:9092 "}
	got := cfg.Brokers()
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if len((Config{}).Brokers()) != 0 {
		t.Fatalf("expected no brokers for empty config")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected env override, got %s", cfg.Port)
	}
	if cfg.PushRetries != 3 {
		t.Fatalf("expected default push retries 3, got %d", cfg.PushRetries)
	}
	if cfg.RealtimeChannel != "table_changes" {
		t.Fatalf("unexpected realtime channel %s", cfg.RealtimeChannel)
	}
}
