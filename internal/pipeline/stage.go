package pipeline

import (
	"fmt"

	"imdbnorm/internal/schema"
)

// Stage is one state of a run.
type Stage int

const (
	StageInit Stage = iota
	StageParseFilm
	StageParsePerson
	StageParsePrincipal
	StageParseRating
	StageWriteDerived
	StageSplit
	StageDone
)

var stageNames = [...]string{
	StageInit:           "init",
	StageParseFilm:      "parse_film",
	StageParsePerson:    "parse_person",
	StageParsePrincipal: "parse_principal",
	StageParseRating:    "parse_rating",
	StageWriteDerived:   "write_derived",
	StageSplit:          "split",
	StageDone:           "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// parseStage maps a source table to its parse stage.
func parseStage(table string) Stage {
	switch table {
	case schema.Film:
		return StageParseFilm
	case schema.Person:
		return StageParsePerson
	case schema.Principal:
		return StageParsePrincipal
	case schema.Rating:
		return StageParseRating
	}
	return StageInit
}

// ResumePoints lists the tables a run may be resumed at.
func ResumePoints() []string {
	return []string{schema.Person, schema.Principal, schema.Rating}
}

// entryStage returns the first parse stage of a run resuming at table. An
// empty table starts from the beginning.
func entryStage(table string) (Stage, error) {
	if table == "" {
		return StageParseFilm, nil
	}
	for _, t := range ResumePoints() {
		if t == table {
			return parseStage(t), nil
		}
	}
	return StageInit, fmt.Errorf("cannot resume at %q (want one of %v)", table, ResumePoints())
}
