package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"techslots/internal/model"
	"techslots/internal/slots"
)

// TechnicianConfig is one profile entry in technicians.yaml.
type TechnicianConfig struct {
	ID           string                       `yaml:"id"`
	Name         string                       `yaml:"name"`
	City         string                       `yaml:"city"`
	Published    *bool                        `yaml:"published,omitempty"`
	Availability map[string][]model.TimeRange `yaml:"availability"`
	Exceptions   map[string][]string          `yaml:"exceptions"`
}

// TechniciansConfig is the root of technicians.yaml.
type TechniciansConfig struct {
	Technicians []TechnicianConfig `yaml:"technicians"`
}

// LoadTechnicians loads and validates technician profiles from a YAML file.
func LoadTechnicians(path string) (*TechniciansConfig, error) {
	if path == "" {
		path = DefaultTechniciansPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read technicians config: %w", err)
	}

	var cfg TechniciansConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse technicians config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate technicians config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the profiles for errors. An empty file is valid.
func (c *TechniciansConfig) Validate() error {
	ids := make(map[string]bool)

	for i, t := range c.Technicians {
		if t.ID == "" {
			return fmt.Errorf("technician[%d]: id is required", i)
		}
		if ids[t.ID] {
			return fmt.Errorf("technician[%d]: duplicate id '%s'", i, t.ID)
		}
		ids[t.ID] = true

		for day, ranges := range t.Availability {
			if _, err := model.ParseWeekday(day); err != nil {
				return fmt.Errorf("technician[%d].availability: %w", i, err)
			}
			for j, r := range ranges {
				if err := validateRange(r); err != nil {
					return fmt.Errorf("technician[%d].availability.%s[%d]: %w", i, day, j, err)
				}
			}
		}

		for date, hours := range t.Exceptions {
			if _, err := time.Parse(slots.DateLayout, date); err != nil {
				return fmt.Errorf("technician[%d].exceptions: invalid date format '%s', expected YYYY-MM-DD", i, date)
			}
			for _, h := range hours {
				if _, ok := slots.ParseBound(h); !ok {
					return fmt.Errorf("technician[%d].exceptions.%s: invalid hour '%s', expected HH:00", i, date, h)
				}
			}
		}
	}

	return nil
}

func validateRange(r model.TimeRange) error {
	start, ok := slots.ParseBound(r.Start)
	if !ok {
		return fmt.Errorf("start: invalid format '%s', expected HH:MM", r.Start)
	}
	end, ok := slots.ParseBound(r.End)
	if !ok {
		return fmt.Errorf("end: invalid format '%s', expected HH:MM", r.End)
	}
	if end <= start {
		return fmt.Errorf("end must be after start")
	}
	return nil
}

// ToModel converts the entries to profiles with canonical weekday codes.
// Entries without an explicit published flag are published.
func (c *TechniciansConfig) ToModel() ([]*model.Technician, error) {
	out := make([]*model.Technician, 0, len(c.Technicians))
	for _, t := range c.Technicians {
		avail := make(model.WeeklyAvailability, len(t.Availability))
		for day, ranges := range t.Availability {
			avail[model.Weekday(day)] = ranges
		}
		avail, err := avail.Normalize()
		if err != nil {
			return nil, fmt.Errorf("technician %s: %w", t.ID, err)
		}

		published := true
		if t.Published != nil {
			published = *t.Published
		}

		out = append(out, &model.Technician{
			ID:           t.ID,
			Name:         t.Name,
			City:         t.City,
			Published:    published,
			Availability: avail,
			Exceptions:   model.ExceptionMap(t.Exceptions),
		})
	}
	return out, nil
}

// GetTechnicianByID returns the entry with id, or nil.
func (c *TechniciansConfig) GetTechnicianByID(id string) *TechnicianConfig {
	for i := range c.Technicians {
		if c.Technicians[i].ID == id {
			return &c.Technicians[i]
		}
	}
	return nil
}

// String returns a summary of the configuration.
func (c *TechniciansConfig) String() string {
	published := 0
	for _, t := range c.Technicians {
		if t.Published == nil || *t.Published {
			published++
		}
	}
	return fmt.Sprintf("TechniciansConfig: %d technicians (%d published)", len(c.Technicians), published)
}
