package storage

import (
	"encoding/json"
	"errors"

	"cellsim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeCellRecords(cells []model.CellRecord) ([]byte, error) {
	return json.Marshal(cells)
}

func DecodeCellRecords(data []byte) ([]model.CellRecord, error) {
	var cells []model.CellRecord
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

func EncodeColonyRecords(colonies []model.ColonyRecord) ([]byte, error) {
	return json.Marshal(colonies)
}

func DecodeColonyRecords(data []byte) ([]model.ColonyRecord, error) {
	var colonies []model.ColonyRecord
	if err := json.Unmarshal(data, &colonies); err != nil {
		return nil, err
	}
	return colonies, nil
}

func EncodeTrees(trees []model.TreeRecord) ([]byte, error) {
	return json.Marshal(trees)
}

func DecodeTrees(data []byte) ([]model.TreeRecord, error) {
	var trees []model.TreeRecord
	if err := json.Unmarshal(data, &trees); err != nil {
		return nil, err
	}
	for _, tree := range trees {
		if err := checkVersion(tree.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return trees, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
