package main

import (
	"strings"
	"testing"
)

func TestParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantProfile string
		wantArgs    []string
	}{
		{
			name:        "no flags",
			args:        []string{"connect", "url"},
			wantProfile: "",
			wantArgs:    []string{"connect", "url"},
		},
		{
			name:        "profile before command",
			args:        []string{"--profile", "staging", "connect"},
			wantProfile: "staging",
			wantArgs:    []string{"connect"},
		},
		{
			name:        "profile after command",
			args:        []string{"config", "--profile", "prod"},
			wantProfile: "prod",
			wantArgs:    []string{"config"},
		},
		{
			name:        "profile with extra args",
			args:        []string{"--profile", "dev", "ask", "what changed?"},
			wantProfile: "dev",
			wantArgs:    []string{"ask", "what changed?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activeProfile = ""
			got := parseGlobalFlags(tt.args)
			if activeProfile != tt.wantProfile {
				t.Errorf("activeProfile = %q, want %q", activeProfile, tt.wantProfile)
			}
			if len(got) != len(tt.wantArgs) {
				t.Errorf("remaining args = %v, want %v", got, tt.wantArgs)
				return
			}
			for i := range got {
				if got[i] != tt.wantArgs[i] {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{
			name: "under max length",
			s:    "hello",
			max:  10,
			want: "hello",
		},
		{
			name: "at max length",
			s:    "hello",
			max:  5,
			want: "hello",
		},
		{
			name: "over max length",
			s:    "hello world this is long",
			max:  10,
			want: "hello w...",
		},
		{
			name: "empty string",
			s:    "",
			max:  10,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.s, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
			if len(got) > tt.max {
				t.Errorf("truncate(%q, %d) returned string of len %d, exceeds max", tt.s, tt.max, len(got))
			}
			if tt.max > 3 && len(tt.s) > tt.max && !strings.HasSuffix(got, "...") {
				t.Errorf("truncate(%q, %d) = %q, expected ... suffix for truncated string", tt.s, tt.max, got)
			}
		})
	}
}
