package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrLabelMismatch reports a label table that disagrees with the model.
var ErrLabelMismatch = errors.New("classifier: label table does not match model")

// Labels maps class indices to display names.
type Labels []string

// DefaultLabels returns the two-class voice table.
func DefaultLabels() Labels {
	return Labels{"AI-Generated Voice", "Real Voice"}
}

// ParseLabels accepts a JSON array of strings or a comma separated list.
func ParseLabels(s string) (Labels, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var l Labels
		if err := json.Unmarshal([]byte(s), &l); err != nil {
			return nil, fmt.Errorf("classifier: parse labels: %w", err)
		}
		return l, nil
	}
	parts := strings.Split(s, ",")
	l := make(Labels, len(parts))
	for i, p := range parts {
		l[i] = strings.TrimSpace(p)
	}
	return l, nil
}

// Name returns the label of class i.
func (l Labels) Name(i int) (string, bool) {
	if i < 0 || i >= len(l) {
		return "", false
	}
	return l[i], true
}

// Validate checks the table against the model's output width (ignored when
// classes is 0) and the label order the model declares (ignored when nil).
func (l Labels) Validate(classes int, declared Labels) error {
	if len(l) < 2 {
		return fmt.Errorf("%w: need at least two labels, have %d", ErrLabelMismatch, len(l))
	}
	seen := make(map[string]bool, len(l))
	for _, name := range l {
		if name == "" {
			return fmt.Errorf("%w: empty label", ErrLabelMismatch)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate label %q", ErrLabelMismatch, name)
		}
		seen[name] = true
	}
	if classes > 0 && classes != len(l) {
		return fmt.Errorf("%w: model has %d outputs, table has %d labels", ErrLabelMismatch, classes, len(l))
	}
	if declared == nil {
		return nil
	}
	if len(declared) != len(l) {
		return fmt.Errorf("%w: model declares %d labels, table has %d", ErrLabelMismatch, len(declared), len(l))
	}
	for i := range l {
		if !strings.EqualFold(strings.TrimSpace(declared[i]), l[i]) {
			return fmt.Errorf("%w: class %d is %q in the model, %q in the table", ErrLabelMismatch, i, declared[i], l[i])
		}
	}
	return nil
}
