// Package seed reads the YAML document that bootstraps catalog, org tree and
// periods into a store.
package seed

import (
    "fmt"
    "io"
    "os"

    "gopkg.in/yaml.v3"

    "maturity/internal/domain"
)

type Seed struct {
    Pillars []domain.FullPillar       `yaml:"pillars"`
    Units   []domain.OrgUnit          `yaml:"units"`
    Periods []domain.AssessmentPeriod `yaml:"periods"`
}

// Decode parses a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (Seed, error) {
    var s Seed
    dec := yaml.NewDecoder(r)
    dec.KnownFields(true)
    if err := dec.Decode(&s); err != nil && err != io.EOF {
        return Seed{}, fmt.Errorf("decoding seed: %w", err)
    }
    for i := range s.Pillars {
        if s.Pillars[i].Code == "" {
            s.Pillars[i].Code = s.Pillars[i].ID
        }
        for j := range s.Pillars[i].Stages {
            st := &s.Pillars[i].Stages[j]
            if st.Position == 0 {
                st.Position = j + 1
            }
            for k := range st.Themes {
                if st.Themes[k].Position == 0 {
                    st.Themes[k].Position = k + 1
                }
            }
        }
    }
    for i, p := range s.Periods {
        if p.Status == "" {
            s.Periods[i].Status = domain.PeriodOpen
        }
    }
    return s, nil
}

// LoadFile opens and decodes path.
func LoadFile(path string) (Seed, error) {
    f, err := os.Open(path)
    if err != nil {
        return Seed{}, fmt.Errorf("opening seed: %w", err)
    }
    defer f.Close()
    return Decode(f)
}
