package journal

import (
	"slices"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults follow with ten lines",
			opts: Options{},
			want: []string{"--output=json", "--follow", "--lines=10"},
		},
		{
			name: "explicit lines",
			opts: Options{Lines: IntPtr(2)},
			want: []string{"--output=json", "--follow", "--lines=2"},
		},
		{
			name: "zero lines is allowed",
			opts: Options{Lines: IntPtr(0)},
			want: []string{"--output=json", "--follow", "--lines=0"},
		},
		{
			name: "until disables follow and default limit",
			opts: Options{Until: "2026-02-19 12:00"},
			want: []string{"--output=json", "--until=2026-02-19 12:00"},
		},
		{
			name: "since without limit",
			opts: Options{Since: "2026-02-19"},
			want: []string{"--output=json", "--follow", "--since=2026-02-19"},
		},
		{
			name: "time range with explicit limit",
			opts: Options{All: true, Lines: IntPtr(5), Since: "2026-02-18", Until: "2026-02-19"},
			want: []string{"--output=json", "--until=2026-02-19", "--all", "--lines=5", "--since=2026-02-18"},
		},
		{
			name: "single priority",
			opts: Options{Priority: PriorityLevel(3)},
			want: []string{"--output=json", "--follow", "--lines=10", "--priority=3"},
		},
		{
			name: "priority range",
			opts: Options{Priority: PriorityRange(0, 4)},
			want: []string{"--output=json", "--follow", "--lines=10", "--priority=0..4"},
		},
		{
			name: "identifier then unit then matches",
			opts: Options{
				Identifier: "sshd",
				Unit:       "ssh.service",
				Matches:    []Match{{Field: "_PID", Value: "42"}, {Field: "_UID", Value: "a=b"}},
			},
			want: []string{"--output=json", "--follow", "--lines=10", "--identifier=sshd", "--unit=ssh.service", "_PID=42", "_UID=a=b"},
		},
		{
			name: "after cursor",
			opts: Options{AfterCursor: "s=abc;i=1"},
			want: []string{"--output=json", "--follow", "--lines=10", "--after-cursor=s=abc;i=1"},
		},
		{
			name: "narrowed fields get required fields appended",
			opts: Options{Fields: []string{"_PID", "MESSAGE"}},
			want: []string{
				"--output=json", "--follow", "--lines=10",
				"--output-fields=_PID", "--output-fields=MESSAGE",
				"--output-fields=SYSLOG_IDENTIFIER", "--output-fields=_HOSTNAME",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildArgs(tt.opts)
			if err != nil {
				t.Fatalf("BuildArgs error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildArgs =\n  %q\nwant\n  %q", got, tt.want)
			}
		})
	}
}

func TestBuildArgsDeterministic(t *testing.T) {
	opts := Options{
		Since:    "2026-02-18",
		Priority: PriorityRange(1, 3),
		Matches:  []Match{{Field: "B", Value: "2"}, {Field: "A", Value: "1"}},
		Fields:   []string{"_PID"},
	}
	first, err := BuildArgs(opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := BuildArgs(opts)
		if !slices.Equal(first, again) {
			t.Fatalf("BuildArgs not deterministic: %q vs %q", first, again)
		}
	}
}

func TestBuildArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"since after until", Options{Since: "2026-02-20", Until: "2026-02-19"}, "since"},
		{"bad since", Options{Since: "last tuesday"}, "date"},
		{"bad until", Options{Until: "2026-02-31"}, "date"},
		{"negative lines", Options{Lines: IntPtr(-1)}, "integer"},
		{"priority out of range", Options{Priority: PriorityLevel(8)}, "priority"},
		{"priority range upper bound", Options{Priority: PriorityRange(0, 9)}, "priority"},
		{"identifier whitespace", Options{Identifier: "my app"}, "identifier"},
		{"unit characters", Options{Unit: "bad unit"}, "unit"},
		{"lowercase match field", Options{Matches: []Match{{Field: "pid", Value: "1"}}}, "field"},
		{"lowercase output field", Options{Fields: []string{"message"}}, "field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildArgs(tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestBuildArgsEqualBounds(t *testing.T) {
	if _, err := BuildArgs(Options{Since: "2026-02-19", Until: "2026-02-19"}); err != nil {
		t.Errorf("equal since and until should be accepted: %v", err)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3", "3"},
		{"0..4", "0..4"},
		{"err", "3"},
		{"emerg..warning", "0..4"},
		{"DEBUG", "7"},
	}
	for _, tt := range tests {
		p, err := ParsePriority(tt.in)
		if err != nil {
			t.Errorf("ParsePriority(%q) error: %v", tt.in, err)
			continue
		}
		if p.String() != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, p.String(), tt.want)
		}
	}

	for _, in := range []string{"", "8", "1.5", "loud", "0..", "..3", "-1"} {
		if _, err := ParsePriority(in); err == nil {
			t.Errorf("ParsePriority(%q) should fail", in)
		}
	}
}

func TestParseMatch(t *testing.T) {
	m, err := ParseMatch("_SYSTEMD_UNIT=docker.service")
	if err != nil {
		t.Fatal(err)
	}
	if m.Field != "_SYSTEMD_UNIT" || m.Value != "docker.service" {
		t.Errorf("ParseMatch = %+v", m)
	}

	m, err = ParseMatch("MESSAGE=a=b")
	if err != nil {
		t.Fatal(err)
	}
	if m.Value != "a=b" {
		t.Errorf("value = %q, want %q", m.Value, "a=b")
	}

	for _, in := range []string{"NOEQUALS", "lower=x", "=x"} {
		if _, err := ParseMatch(in); err == nil {
			t.Errorf("ParseMatch(%q) should fail", in)
		}
	}
}
