package ir

import "testing"

func TestNeedsQuoting(t *testing.T) {
	tests := []struct {
		identifier string
		want       bool
	}{
		{"users", false},
		{"active_users", false},
		{"_internal", false},
		{"v2", false},
		{"user", true},   // reserved word
		{"order", true},  // reserved word
		{"Users", true},  // uppercase folds
		{"my-view", true},
		{"1view", true},
		{"my view", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := NeedsQuoting(tt.identifier); got != tt.want {
			t.Errorf("NeedsQuoting(%q) = %v, want %v", tt.identifier, got, tt.want)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
	}{
		{"users", "users"},
		{"user", `"user"`},
		{"MixedCase", `"MixedCase"`},
		{"my-view", `"my-view"`},
	}

	for _, tt := range tests {
		if got := QuoteIdentifier(tt.identifier); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.identifier, got, tt.want)
		}
	}
}

func TestQualifyName(t *testing.T) {
	tests := []struct {
		name         string
		entitySchema string
		entityName   string
		targetSchema string
		want         string
	}{
		{"same schema omits qualification", "public", "users", "public", "users"},
		{"empty schema omits qualification", "", "users", "public", "users"},
		{"different schema qualifies", "analytics", "users", "public", "analytics.users"},
		{"quoting applies to both parts", "Analytics", "user", "public", `"Analytics"."user"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualifyName(tt.entitySchema, tt.entityName, tt.targetSchema)
			if got != tt.want {
				t.Errorf("QualifyName(%q, %q, %q) = %q, want %q",
					tt.entitySchema, tt.entityName, tt.targetSchema, got, tt.want)
			}
		})
	}
}
