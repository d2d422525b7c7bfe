// Package snapshotfile reads and writes catalog snapshots as YAML, for seeding and exports.
package snapshotfile

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/studygroups/core/study"
)

func Decode(r io.Reader) (study.Snapshot, error) {
	var snap study.Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && err != io.EOF {
		return study.Snapshot{}, errors.Wrap(err, "decoding snapshot")
	}
	return snap, nil
}

func Encode(w io.Writer, snap study.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return enc.Close()
}

func Read(path string) (study.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return study.Snapshot{}, errors.Wrap(err, "opening snapshot file")
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

func Write(path string, snap study.Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot file")
	}
	defer func() {
		if cErr := f.Close(); err == nil && cErr != nil {
			err = errors.Wrap(cErr, "closing snapshot file")
		}
	}()
	return Encode(f, snap)
}
