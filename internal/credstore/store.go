// Package credstore loads and holds the per-institution AWS credentials the
// broker routes tool calls with. The set is immutable after load; Reload
// swaps the whole set atomically so in-flight lookups never observe a
// half-migrated state.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/grnet/mcp-aws-orgs/internal/envelope"
)

// ErrUnknownInstitution is returned by Lookup for institutions that are not
// present in the loaded credential set.
var ErrUnknownInstitution = errors.New("unknown institution")

// Credential is the secret material and metadata for one institution.
// The secret fields never appear in logs or envelopes: both String and
// LogValue redact them.
type Credential struct {
	AccessKeyID     string `json:"aws_access_key_id" yaml:"aws_access_key_id"`
	SecretAccessKey string `json:"aws_secret_access_key" yaml:"aws_secret_access_key"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`

	// Region overrides the broker-wide default region for Organizations,
	// Cost Explorer and tagging calls. SSORegion does the same for IAM
	// Identity Center calls.
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	SSORegion string `json:"sso_region,omitempty" yaml:"sso_region,omitempty"`
}

// String redacts the secret material.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{access_key_id:%s, secret:[redacted]}", maskKeyID(c.AccessKeyID))
}

// LogValue keeps slog output free of secret material.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key_id", maskKeyID(c.AccessKeyID)),
		slog.String("secret_access_key", "[redacted]"),
	)
}

// maskKeyID keeps the AKIA-style prefix for correlation and hides the rest.
func maskKeyID(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return id[:4] + strings.Repeat("*", len(id)-4)
}

// secretsFile is the on-disk document shape, shared by JSON and YAML.
type secretsFile struct {
	Institutions map[string]Credential `json:"institutions" yaml:"institutions"`
}

// Store holds the credential set for all configured institutions. Lookups
// are lock-free reads of an atomically swapped snapshot.
type Store struct {
	set atomic.Pointer[map[string]Credential]
}

// Load reads and validates a secrets file. The format is chosen by
// extension: .yaml/.yml is parsed as YAML, anything else as JSON.
// Validation failures return an envelope.Error of kind config_error and
// are fatal at startup.
func Load(path string) (*Store, error) {
	set, err := parse(path)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	s.set.Store(&set)
	return s, nil
}

// Reload parses the file fully and, only on success, replaces the whole
// credential set. A parse or validation failure leaves the current set
// untouched.
func (s *Store) Reload(path string) error {
	set, err := parse(path)
	if err != nil {
		return err
	}
	s.set.Store(&set)
	return nil
}

func parse(path string) (map[string]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, envelope.Errorf(envelope.KindConfig, "read secrets file %s: %v", path, err)
	}

	var doc secretsFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, envelope.Errorf(envelope.KindConfig, "invalid YAML in secrets file %s: %v", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, envelope.Errorf(envelope.KindConfig, "invalid JSON in secrets file %s: %v", path, err)
		}
	}

	if len(doc.Institutions) == 0 {
		return nil, envelope.Errorf(envelope.KindConfig, "no institutions found in %s", path)
	}
	for name, cred := range doc.Institutions {
		if cred.AccessKeyID == "" || cred.SecretAccessKey == "" {
			return nil, envelope.Errorf(envelope.KindConfig,
				"missing required AWS credentials for institution %q", name)
		}
	}
	return doc.Institutions, nil
}

// Lookup returns the credential for an institution, or ErrUnknownInstitution.
func (s *Store) Lookup(name string) (Credential, error) {
	set := *s.set.Load()
	cred, ok := set[name]
	if !ok {
		return Credential{}, fmt.Errorf("institution %q: %w", name, ErrUnknownInstitution)
	}
	return cred, nil
}

// Has reports whether an institution is configured.
func (s *Store) Has(name string) bool {
	_, ok := (*s.set.Load())[name]
	return ok
}

// Names returns the configured institution names in sorted order.
func (s *Store) Names() []string {
	set := *s.set.Load()
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of configured institutions.
func (s *Store) Len() int {
	return len(*s.set.Load())
}
