// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"context"
	"slices"
)

// minimize shrinks a failing scenario by removing one actor at a time and
// keeping a candidate only if re-executing it fails with the same kind.
//
// The parallel part is shrunk first, then the init part, then the post
// part. Threads left empty are dropped when the remaining actors may still
// run on their renumbered threads. Execution of candidates is bounded by
// the minimize effort; the result is always a failure that was observed.
func (t *Tester[C, S]) minimize(ctx context.Context, f *Failure) *Failure {
	best := f
	budget := t.opts.minimizeEffort
	tried := 0
	for improved := true; improved && budget > 0; {
		improved = false
		for _, cand := range t.candidates(best.Scenario) {
			if budget == 0 || ctx.Err() != nil {
				break
			}
			budget--
			tried++
			g, err := t.runScenario(ctx, cand)
			if err != nil || g == nil || g.Kind != f.Kind {
				continue
			}
			g.Iteration = f.Iteration
			g.Seed = f.Seed
			g.Minimized = true
			best = g
			improved = true
			break
		}
	}
	t.log.Info().
		Int("from", f.Scenario.Size()).
		Int("to", best.Scenario.Size()).
		Int("candidates", tried).
		Msg("minimized counter-example")
	return best
}

// candidates lists the scenarios obtained from s by removing one actor.
func (t *Tester[C, S]) candidates(s *Scenario) []*Scenario {
	var out []*Scenario
	for th := range s.Parallel {
		for i := range s.Parallel[th] {
			c := s.clone()
			c.Parallel[th] = slices.Delete(c.Parallel[th], i, i+1)
			if len(c.Parallel[th]) == 0 {
				c = t.dropThread(c, th)
			}
			if c != nil && c.Size() > 0 {
				out = append(out, c)
			}
		}
	}
	for i := range s.Init {
		c := s.clone()
		c.Init = slices.Delete(c.Init, i, i+1)
		out = append(out, c)
	}
	for i := range s.Post {
		c := s.clone()
		c.Post = slices.Delete(c.Post, i, i+1)
		out = append(out, c)
	}
	return out
}

// dropThread removes the empty thread th and renumbers the following
// threads. It returns s unchanged if a renumbered actor would run on a
// thread its variant does not allow, leaving the empty thread in place.
func (t *Tester[C, S]) dropThread(s *Scenario, th int) *Scenario {
	rest := slices.Delete(slices.Clone(s.Parallel), th, th+1)
	for nt := th; nt < len(rest); nt++ {
		for i := range rest[nt] {
			a := &rest[nt][i]
			if !t.reg.op(a.Op).Variants[a.Variant].allows(nt) {
				return s
			}
		}
	}
	s.Parallel = rest
	return s
}
