// Package alpha imports workout history exported from the Alpha Progression app.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Session is one workout block of an export.
type Session struct {
	Name      string
	Date      time.Time
	Duration  time.Duration
	Exercises []Exercise
}

// Exercise is a numbered exercise within a session.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// WorkingSets returns the non-warmup sets.
func (e Exercise) WorkingSets() []Set {
	var out []Set
	for _, s := range e.Sets {
		if !s.Warmup {
			out = append(out, s)
		}
	}
	return out
}

// Set is a warmup or working set. Bodyweight exercises record the added load
// ("+35") and set Bodyweight.
type Set struct {
	Number     int
	WeightKg   float64
	Bodyweight bool
	Reps       int
	RIR        float64
	Warmup     bool
}

var (
	// "Legs · Day 2";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Hack Squats · Machine · 8 reps[ · modifiers]"[;"warmups"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setRowRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	// 1:02 hr, 45 min
	durationRe = regexp.MustCompile(`^(?:(\d+):(\d{2})\s*hr?|(\d+)\s*min)$`)
)

const columnHeader = "#;KG;REPS;RIR"

type parser struct {
	sessions []Session
	session  *Session
	exercise *Exercise
}

func (p *parser) flushExercise() {
	if p.exercise != nil && p.session != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) flushSession() {
	p.flushExercise()
	if p.session != nil {
		p.sessions = append(p.sessions, *p.session)
	}
	p.session = nil
}

// Parse reads an Alpha Progression CSV export. Blank lines separate sessions;
// lines it does not recognize (notes and the like) are ignored.
func Parse(r io.Reader) ([]Session, error) {
	var p parser
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			p.flushSession()

		case line == columnHeader:

		case sessionHeaderRe.MatchString(line):
			m := sessionHeaderRe.FindStringSubmatch(line)
			p.flushSession()
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.session = &Session{Name: m[1], Date: date, Duration: parseDuration(m[3])}

		case exerciseHeaderRe.MatchString(line):
			m := exerciseHeaderRe.FindStringSubmatch(line)
			if p.session == nil {
				return nil, fmt.Errorf("line %d: exercise without session: %q", lineNo, line)
			}
			p.flushExercise()
			num, _ := strconv.Atoi(m[1])
			targetReps, _ := strconv.Atoi(m[4])
			p.exercise = &Exercise{
				Number:     num,
				Name:       strings.TrimSpace(m[2]),
				Equipment:  strings.TrimSpace(m[3]),
				TargetReps: targetReps,
			}
			if m[6] != "" {
				p.exercise.Sets = append(p.exercise.Sets, parseWarmups(m[6])...)
			}

		case setRowRe.MatchString(line):
			m := setRowRe.FindStringSubmatch(line)
			if p.exercise == nil {
				return nil, fmt.Errorf("line %d: set data without exercise: %q", lineNo, line)
			}
			num, _ := strconv.Atoi(m[1])
			weight, bw := parseWeight(m[2])
			reps, _ := strconv.Atoi(m[3])
			p.exercise.Sets = append(p.exercise.Sets, Set{
				Number:     num,
				WeightKg:   weight,
				Bodyweight: bw,
				Reps:       reps,
				RIR:        parseEuropeanFloat(m[4]),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.flushSession()
	return p.sessions, nil
}

// parseSessionDate accepts "2026-02-19 4:54" as well as "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

// parseDuration returns 0 for anything unrecognized.
func parseDuration(s string) time.Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	if m[3] != "" {
		mins, _ := strconv.Atoi(m[3])
		return time.Duration(mins) * time.Minute
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · ..." into warmup sets.
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{Number: num, WeightKg: weight, Bodyweight: bw, Reps: reps, Warmup: true})
	}
	return sets
}

// parseWeight: "+35" -> (35, true), "102,5" -> (102.5, false).
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseEuropeanFloat(rest), true
	}
	return parseEuropeanFloat(s), false
}

func parseEuropeanFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}
