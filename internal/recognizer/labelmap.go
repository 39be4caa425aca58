// recognizer/labelmap.go label to registration-number mapping and its
// persisted JSON form
package recognizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// LabelMap maps the dense integer labels of one trained model to stable
// registration numbers. Labels are contiguous from 0 and valid only for
// the model they were assigned with; a retrain renumbers everything.
type LabelMap map[int]string

// LabelMapPath derives the label-map artifact path from a model path:
// "trained_model.yml" becomes "trained_model_labels.json".
func LabelMapPath(modelPath string) string {
	ext := filepath.Ext(modelPath)
	return strings.TrimSuffix(modelPath, ext) + "_labels.json"
}

// BuildLabelMap constructs the mapping for a training run. keys must be
// in label order: keys[i] names the identity that was assigned label i.
// When keys has the same cardinality as the distinct label set, labels
// and keys are zipped positionally. Re-sorting keys here would be
// wrong: registration numbers hold '/' where the source directory
// names hold '-', and the two characters do not sort alike, so key
// order and label order can diverge. Otherwise each label maps to its
// own string form as a placeholder.
func BuildLabelMap(labels []int, keys []string) LabelMap {
	distinct := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		distinct[l] = struct{}{}
	}
	sorted := make([]int, 0, len(distinct))
	for l := range distinct {
		sorted = append(sorted, l)
	}
	sort.Ints(sorted)

	lm := make(LabelMap, len(sorted))
	if len(keys) == len(sorted) {
		for i, l := range sorted {
			lm[l] = keys[i]
		}
	} else {
		for _, l := range sorted {
			lm[l] = strconv.Itoa(l)
		}
	}
	return lm
}

// Lookup returns the registration number for a label, falling back to
// the label's string form when the map has no entry for it.
func (lm LabelMap) Lookup(label int) string {
	if key, ok := lm[label]; ok {
		return key
	}
	return strconv.Itoa(label)
}

// Save writes the map as an indented JSON object with stringified
// integer keys, atomically (temp file then rename).
func (lm LabelMap) Save(path string) error {
	out := make(map[string]string, len(lm))
	for label, key := range lm {
		out[strconv.Itoa(label)] = key
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("recognizer").
			Category(errors.CategoryLabelMap).
			Build()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // label map is operator-inspectable
		return errors.New(err).
			Component("recognizer").
			Category(errors.CategoryFileIO).
			Context("path", tmp).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.New(err).
			Component("recognizer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

// LoadLabelMap reads a label map written by Save.
func LoadLabelMap(path string) (LabelMap, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from settings
	if err != nil {
		return nil, errors.New(err).
			Component("recognizer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	raw := make(map[string]string)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(err).
			Component("recognizer").
			Category(errors.CategoryLabelMap).
			Context("path", path).
			Build()
	}

	lm := make(LabelMap, len(raw))
	for k, v := range raw {
		label, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Newf("label map key %q is not an integer", k).
				Component("recognizer").
				Category(errors.CategoryLabelMap).
				Context("path", path).
				Build()
		}
		lm[label] = v
	}
	return lm, nil
}
