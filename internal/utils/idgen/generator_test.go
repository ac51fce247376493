package idgen

import (
	"strings"
	"testing"
)

func TestGenerateSecureID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		length     int
		wantErr    bool
		wantPrefix string
	}{
		{name: "session id", prefix: "sess", length: 24, wantPrefix: "sess_"},
		{name: "room id", prefix: "room", length: 24, wantPrefix: "room_"},
		{name: "webhook event id", prefix: "evt", length: 16, wantPrefix: "evt_"},
		{name: "no prefix", prefix: "", length: 8, wantPrefix: ""},
		{name: "zero length", prefix: "x", length: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSecureID(tt.prefix, tt.length)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateSecureID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateSecureID() = %q, want prefix %q", got, tt.wantPrefix)
			}
			body := strings.TrimPrefix(got, tt.wantPrefix)
			if len(body) != tt.length {
				t.Errorf("GenerateSecureID() body length = %d, want %d", len(body), tt.length)
			}
			for _, r := range body {
				if !strings.ContainsRune(charset, r) {
					t.Errorf("GenerateSecureID() contains invalid char %q", r)
				}
			}
		})
	}
}

func TestGenerateSecureID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := GenerateSecureID("sess", 24)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}
