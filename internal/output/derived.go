package output

import (
	"strconv"

	"imdbnorm/internal/normalize"
	"imdbnorm/internal/schema"
)

// WriteRows writes rows into table's file in one go.
func WriteRows(l Layout, table string, rows [][]string) (n int64, err error) {
	w, err := Create(l, table)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return w.Rows(), err
		}
	}
	return w.Rows(), nil
}

// WriteCategories persists a label accumulator as a dictionary table
// (index, label) and a bridge table (index, entity id). Both files are
// written from the same iteration so indexes line up.
func WriteCategories(l Layout, dictTable, bridgeTable string, c *normalize.Categories) (labels, pairs int64, err error) {
	dict, err := Create(l, dictTable)
	if err != nil {
		return 0, 0, err
	}
	bridge, err := Create(l, bridgeTable)
	if err != nil {
		dict.Close()
		return 0, 0, err
	}
	defer func() {
		if cerr := dict.Close(); err == nil {
			err = cerr
		}
		if cerr := bridge.Close(); err == nil {
			err = cerr
		}
	}()

	err = c.Each(func(index int, label string, ids []uint64) error {
		idx := strconv.Itoa(index)
		if err := dict.Write([]string{idx, label}); err != nil {
			return err
		}
		for _, id := range ids {
			if err := bridge.Write([]string{idx, strconv.FormatUint(id, 10)}); err != nil {
				return err
			}
		}
		return nil
	})
	return dict.Rows(), bridge.Rows(), err
}

// WriteJobs persists the job dictionary as (code, label).
func WriteJobs(l Layout, j *normalize.JobDictionary) (int64, error) {
	rows := make([][]string, 0, j.Len())
	for i, label := range j.Labels() {
		rows = append(rows, []string{strconv.Itoa(i + 1), label})
	}
	return WriteRows(l, schema.Job, rows)
}

// WritePairs persists the person/film pair set, one row per pair.
func WritePairs(l Layout, table string, p *normalize.PairSet) (n int64, err error) {
	w, err := Create(l, table)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	err = p.Each(func(person, film uint64) error {
		return w.Write([]string{strconv.FormatUint(person, 10), strconv.FormatUint(film, 10)})
	})
	return w.Rows(), err
}
