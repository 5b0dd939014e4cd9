package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type ObjectionReraise string

const (
	// ReraiseBlock rejects a new objection while one is unresolved.
	ReraiseBlock ObjectionReraise = "block"
	// ReraiseReplace overwrites the unresolved objection's reason and message.
	ReraiseReplace ObjectionReraise = "replace"
)

// Policy holds the tunable rules of the workflow. Zero values never reach
// the workflow: LoadPolicy starts from DefaultPolicy.
type Policy struct {
	Milestones         []int            `yaml:"milestones"`
	DocumentCategories []string         `yaml:"document_categories"`
	ObjectionReraise   ObjectionReraise `yaml:"objection_reraise"`

	QRMaxBytes             int64 `yaml:"qr_max_bytes"`
	ProofMaxBytes          int64 `yaml:"proof_max_bytes"`
	CompletionFileMaxBytes int64 `yaml:"completion_file_max_bytes"`
	MaxCompletionFiles     int   `yaml:"max_completion_files"`

	MinReviewLength int `yaml:"min_review_length"`

	LockTTL        time.Duration `yaml:"lock_ttl"`
	LockWait       time.Duration `yaml:"lock_wait"`
	DownloadURLTTL time.Duration `yaml:"download_url_ttl"`
}

func DefaultPolicy() Policy {
	return Policy{
		Milestones:             []int{10, 25, 40, 60, 80, 95, 100},
		DocumentCategories:     []string{"resume-services", "content-writing"},
		ObjectionReraise:       ReraiseBlock,
		QRMaxBytes:             5 << 20,
		ProofMaxBytes:          5 << 20,
		CompletionFileMaxBytes: 25 << 20,
		MaxCompletionFiles:     10,
		MinReviewLength:        10,
		LockTTL:                2 * time.Minute,
		LockWait:               10 * time.Second,
		DownloadURLTTL:         15 * time.Minute,
	}
}

// LoadPolicy reads the YAML policy file when it exists, then applies env
// overrides. A missing file is not an error.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&p); err != nil {
				return Policy{}, fmt.Errorf("decode %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Policy{}, err
		}
	}

	overridePolicyFromEnv(&p)
	return p, p.Validate()
}

func overridePolicyFromEnv(p *Policy) {
	if v := os.Getenv("OBJECTION_RERAISE"); v != "" {
		p.ObjectionReraise = ObjectionReraise(v)
	}
	if v := os.Getenv("QR_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.QRMaxBytes = n
		}
	}
	if v := os.Getenv("COMPLETION_FILE_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.CompletionFileMaxBytes = n
		}
	}
	if v := os.Getenv("LOCK_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			p.LockWait = d
		}
	}
}

func (p Policy) Validate() error {
	if len(p.Milestones) == 0 {
		return errors.New("milestones must not be empty")
	}
	if !sort.IntsAreSorted(p.Milestones) {
		return errors.New("milestones must be in ascending order")
	}
	for i, m := range p.Milestones {
		if m <= 0 || m > 100 {
			return fmt.Errorf("milestone %d out of range (1-100)", m)
		}
		if i > 0 && p.Milestones[i-1] == m {
			return fmt.Errorf("duplicate milestone %d", m)
		}
	}
	if p.Milestones[len(p.Milestones)-1] != 100 {
		return errors.New("the last milestone must be 100")
	}
	switch p.ObjectionReraise {
	case ReraiseBlock, ReraiseReplace:
	default:
		return fmt.Errorf("objection_reraise must be %q or %q", ReraiseBlock, ReraiseReplace)
	}
	if p.QRMaxBytes <= 0 || p.ProofMaxBytes <= 0 || p.CompletionFileMaxBytes <= 0 {
		return errors.New("upload limits must be positive")
	}
	return nil
}

func (p Policy) IsDocumentCategory(category string) bool {
	for _, c := range p.DocumentCategories {
		if c == category {
			return true
		}
	}
	return false
}
