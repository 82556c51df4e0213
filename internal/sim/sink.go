package sim

import "cellsim/internal/model"

// RecordSink consumes the per-frame records the runner emits. Writers for
// CSV files, storage backends and in-memory collection all implement it.
type RecordSink interface {
	WriteCellRecord(model.CellRecord) error
	WriteColonyRecord(model.ColonyRecord) error
}

// CollectSink keeps every record in memory, in emission order.
type CollectSink struct {
	Cells    []model.CellRecord
	Colonies []model.ColonyRecord
}

func (s *CollectSink) WriteCellRecord(rec model.CellRecord) error {
	s.Cells = append(s.Cells, rec)
	return nil
}

func (s *CollectSink) WriteColonyRecord(rec model.ColonyRecord) error {
	s.Colonies = append(s.Colonies, rec)
	return nil
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) WriteCellRecord(model.CellRecord) error {
	return nil
}

func (NopSink) WriteColonyRecord(model.ColonyRecord) error {
	return nil
}

// MultiSink fans every record out to each sink in order.
type MultiSink []RecordSink

func (m MultiSink) WriteCellRecord(rec model.CellRecord) error {
	for _, sink := range m {
		if err := sink.WriteCellRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) WriteColonyRecord(rec model.ColonyRecord) error {
	for _, sink := range m {
		if err := sink.WriteColonyRecord(rec); err != nil {
			return err
		}
	}
	return nil
}
