package config

import "testing"

func TestParseICEServersJSON_Empty(t *testing.T) {
	servers, err := ParseICEServersJSON("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if servers != nil {
		t.Fatalf("expected nil for empty input, got %v", servers)
	}
}

func TestParseICEServersJSON_SingleAndSliceURLs(t *testing.T) {
	raw := `[
		{"urls": "stun:stun.example.com:3478"},
		{"urls": ["turn:turn.example.com:3478"], "username": "u", "credential": "p"}
	]`
	servers, err := ParseICEServersJSON(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0].URLs[0] != "stun:stun.example.com:3478" {
		t.Fatalf("unexpected stun url: %v", servers[0].URLs)
	}
	if servers[1].Username != "u" {
		t.Fatalf("turn username not parsed: %+v", servers[1])
	}
	if cred, ok := servers[1].Credential.(string); !ok || cred != "p" {
		t.Fatalf("turn credential not parsed: %+v", servers[1])
	}
}

func TestParseICEServersJSON_Rejections(t *testing.T) {
	for name, raw := range map[string]string{
		"bad json": `{not json`,
		"no urls":  `[{"urls": ["  "]}]`,
	} {
		if _, err := ParseICEServersJSON(raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
