// Package recipients loads the audit-mail recipient directory offered for
// "to"/"cc" selection on case approval.
package recipients

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Recipient is one selectable contact.
type Recipient struct {
	Name    string `yaml:"name" json:"name"`
	Email   string `yaml:"email" json:"email"`
	Client  string `yaml:"client,omitempty" json:"client,omitempty"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// Directory is the loaded recipient directory.
type Directory struct {
	mu         sync.RWMutex
	recipients []Recipient
}

type directoryFile struct {
	Recipients []Recipient `yaml:"recipients"`
}

// Load reads the directory from a YAML file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse recipients file: %w", err)
	}

	for i, r := range file.Recipients {
		if r.Email == "" {
			return nil, fmt.Errorf("recipient %d has no email", i)
		}
		if !strings.Contains(r.Email, "@") {
			return nil, fmt.Errorf("recipient %q has an invalid email %q", r.Name, r.Email)
		}
	}

	return &Directory{recipients: file.Recipients}, nil
}

// Empty returns a directory with no entries, used when no file is
// configured. Approval then requires an explicit address.
func Empty() *Directory {
	return &Directory{}
}

// All returns every directory entry.
func (d *Directory) All() []Recipient {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Recipient, len(d.recipients))
	copy(out, d.recipients)
	return out
}

// ForClient returns the entries for one client plus all client-neutral
// entries.
func (d *Directory) ForClient(client string) []Recipient {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Recipient
	for _, r := range d.recipients {
		if r.Client == "" || strings.EqualFold(r.Client, client) {
			out = append(out, r)
		}
	}
	return out
}

// DefaultAddress returns the email marked default, or empty.
func (d *Directory) DefaultAddress() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, r := range d.recipients {
		if r.Default {
			return r.Email
		}
	}
	return ""
}
