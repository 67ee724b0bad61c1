package memory

import "maturity/internal/seed"

// Apply stores every record of the seed.
func (s *Store) Apply(sd seed.Seed) {
    for _, p := range sd.Pillars {
        s.PutPillar(p)
    }
    for _, u := range sd.Units {
        s.PutUnit(u)
    }
    for _, p := range sd.Periods {
        s.PutPeriod(p)
    }
}
