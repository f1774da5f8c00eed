// Package countries holds the embedded ISO country reference table that every
// country_code in the system is checked against.
package countries

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var rawTable []byte

// Country is a reference entry keyed by its ISO 3166-1 alpha-2 code.
type Country struct {
	Code   string `yaml:"code" json:"code"`
	Name   string `yaml:"name" json:"name"`
	Region string `yaml:"region" json:"region"`
}

var (
	loadOnce sync.Once
	byCode   map[string]Country
	sorted   []Country
)

func load() {
	var list []Country
	if err := yaml.Unmarshal(rawTable, &list); err != nil {
		panic(fmt.Sprintf("countries: invalid embedded table: %v", err))
	}
	byCode = make(map[string]Country, len(list))
	for _, c := range list {
		c.Code = strings.ToUpper(c.Code)
		byCode[c.Code] = c
	}
	sorted = make([]Country, 0, len(byCode))
	for _, c := range byCode {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
}

// All returns every country ordered by name.
func All() []Country {
	loadOnce.Do(load)
	out := make([]Country, len(sorted))
	copy(out, sorted)
	return out
}

// Lookup finds a country by code, ignoring case.
func Lookup(code string) (Country, bool) {
	loadOnce.Do(load)
	c, ok := byCode[Normalize(code)]
	return c, ok
}

// Known reports whether code is in the reference table.
func Known(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Normalize trims and upper-cases a country code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
