// Package roster loads the agents orders are handed to.
package roster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrEmptyRoster = errors.New("roster has no agents")

type Agent struct {
	Name     string `yaml:"name"`
	SheetID  string `yaml:"sheet_id"`
	Tab      string `yaml:"tab"`
	WhatsApp string `yaml:"whatsapp"`
}

// Roster is the ordered agent list. Order matters: round-robin assignment walks it.
type Roster struct {
	Agents []Agent `yaml:"agents"`
}

// Load reads a roster YAML file. Agents missing a name or sheet id are skipped;
// defaultTab fills an empty tab.
func Load(path, defaultTab string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return Parse(data, defaultTab)
}

func Parse(data []byte, defaultTab string) (*Roster, error) {
	var raw Roster
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	r := &Roster{}
	seen := make(map[string]bool)
	for i, a := range raw.Agents {
		a.Name = strings.TrimSpace(a.Name)
		a.SheetID = strings.TrimSpace(a.SheetID)
		a.WhatsApp = strings.TrimSpace(a.WhatsApp)
		if a.Name == "" || a.SheetID == "" {
			log.Warn().Int("index", i).Str("name", a.Name).Msg("Roster entry missing name or sheet_id; skipping")
			continue
		}
		if seen[strings.ToLower(a.Name)] {
			log.Warn().Str("name", a.Name).Msg("Duplicate agent name in roster; skipping")
			continue
		}
		seen[strings.ToLower(a.Name)] = true
		if strings.TrimSpace(a.Tab) == "" {
			a.Tab = defaultTab
		}
		r.Agents = append(r.Agents, a)
	}

	if len(r.Agents) == 0 {
		return nil, ErrEmptyRoster
	}
	log.Debug().Int("agents", len(r.Agents)).Msg("Loaded agent roster")
	return r, nil
}

func (r *Roster) Len() int {
	return len(r.Agents)
}

// Resolve finds an agent by name, ignoring case and surrounding whitespace.
func (r *Roster) Resolve(name string) (Agent, bool) {
	for _, a := range r.Agents {
		if MatchesAgent(a.Name, name) {
			return a, true
		}
	}
	return Agent{}, false
}

// ForRow is the round-robin agent for a 1-based data row.
func (r *Roster) ForRow(dataRow int) Agent {
	n := len(r.Agents)
	return r.Agents[((dataRow-1)%n+n)%n]
}

// MatchesAgent compares a configured agent name with a name typed by an operator or
// read from a sheet cell.
func MatchesAgent(configured, given string) bool {
	return strings.EqualFold(strings.TrimSpace(configured), strings.TrimSpace(given))
}
