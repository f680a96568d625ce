package config

import (
	"strings"
	"testing"
)

func TestValidatorRules(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(v *Validator)
		wantError bool
	}{
		{"non-empty value", func(v *Validator) { v.RequireNonEmpty("f", "valid") }, false},
		{"empty value", func(v *Validator) { v.RequireNonEmpty("f", "") }, true},
		{"positive value", func(v *Validator) { v.RequirePositive("f", 10) }, false},
		{"zero value", func(v *Validator) { v.RequirePositive("f", 0) }, true},
		{"in range", func(v *Validator) { v.ValidateRange("f", 5, 0, 10) }, false},
		{"below range", func(v *Validator) { v.ValidateRange("f", -1, 0, 10) }, true},
		{"float in range", func(v *Validator) { v.ValidateFloatRange("f", 0.7, 0, 2) }, false},
		{"float above range", func(v *Validator) { v.ValidateFloatRange("f", 2.5, 0, 2) }, true},
		{"valid port", func(v *Validator) { v.ValidatePort("f", 8080) }, false},
		{"invalid port", func(v *Validator) { v.ValidatePort("f", 70000) }, true},
		{"valid redis db", func(v *Validator) { v.ValidateDBNumber("f", 15) }, false},
		{"invalid redis db", func(v *Validator) { v.ValidateDBNumber("f", 16) }, true},
		{"allowed option", func(v *Validator) { v.ValidateOneOf("f", "mongo", "memory", "mongo") }, false},
		{"unknown option", func(v *Validator) { v.ValidateOneOf("f", "sqlite", "memory", "mongo") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.apply(v)
			if v.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantError)
			}
		})
	}
}

func TestValidatorMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("field1", "")
	v.RequirePositive("field2", 0)
	v.ValidatePort("field3", 99999)

	if len(v.errors) != 3 {
		t.Errorf("error count = %d, want 3", len(v.errors))
	}

	err := v.Error()
	if err == nil {
		t.Fatal("Error() = nil, want non-nil error")
	}
	for _, field := range []string{"field1", "field2", "field3"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error message misses %s: %v", field, err)
		}
	}
}

func TestValidateStoreConfigs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError bool
	}{
		{"postgres valid", ValidatePostgresConfig("localhost", 5432, "postgres", "tandem", "disable"), false},
		{"postgres missing host", ValidatePostgresConfig("", 5432, "postgres", "tandem", "disable"), true},
		{"postgres bad ssl mode", ValidatePostgresConfig("localhost", 5432, "postgres", "tandem", "sometimes"), true},
		{"redis valid", ValidateRedisConfig("localhost:6379", 0, "tandem:"), false},
		{"redis missing prefix", ValidateRedisConfig("localhost:6379", 0, ""), true},
		{"mongo valid", ValidateMongoDBConfig("mongodb://localhost:27017", "tandem", "chats"), false},
		{"mongo missing uri", ValidateMongoDBConfig("", "tandem", "chats"), true},
		{"generation valid", ValidateGenerationConfig("gemini-2.5-flash-lite", 0.7, 2048), false},
		{"generation hot", ValidateGenerationConfig("gpt-4o-mini", 2.5, 2048), true},
		{"limiter disabled", ValidateLimiterConfig(0), false},
		{"limiter negative", ValidateLimiterConfig(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", tt.err, tt.wantError)
			}
		})
	}
}
