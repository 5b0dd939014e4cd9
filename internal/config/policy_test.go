package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPolicyMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if p.ObjectionReraise != ReraiseBlock {
		t.Fatalf("objection_reraise = %q, want block", p.ObjectionReraise)
	}
	if got := p.Milestones; len(got) != 7 || got[0] != 10 || got[6] != 100 {
		t.Fatalf("milestones = %v", got)
	}
	if p.QRMaxBytes != 5<<20 {
		t.Fatalf("qr max = %d, want 5MB", p.QRMaxBytes)
	}
}

func TestLoadPolicyFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	body := []byte(`
objection_reraise: replace
document_categories: [resume-services, content-writing, translation]
lock_wait: 3s
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if p.ObjectionReraise != ReraiseReplace {
		t.Fatalf("objection_reraise = %q, want replace", p.ObjectionReraise)
	}
	if !p.IsDocumentCategory("translation") {
		t.Fatalf("translation should be a document category")
	}
	if p.LockWait != 3*time.Second {
		t.Fatalf("lock_wait = %v, want 3s", p.LockWait)
	}
	// untouched keys keep defaults
	if p.MinReviewLength != 10 {
		t.Fatalf("min_review_length = %d, want 10", p.MinReviewLength)
	}
}

func TestPolicyValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"unsorted milestones", func(p *Policy) { p.Milestones = []int{25, 10, 100} }},
		{"missing 100", func(p *Policy) { p.Milestones = []int{10, 50, 95} }},
		{"duplicate", func(p *Policy) { p.Milestones = []int{10, 10, 100} }},
		{"bad reraise", func(p *Policy) { p.ObjectionReraise = "sometimes" }},
		{"zero qr limit", func(p *Policy) { p.QRMaxBytes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPolicy()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
